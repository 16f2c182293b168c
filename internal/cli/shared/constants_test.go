package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		err  error
		want int
	}{
		"nil":          {err: nil, want: ExitSuccess},
		"plain error":  {err: errors.New("boom"), want: ExitFailure},
		"exit error":   {err: NewExitError(ExitInvalidArguments), want: ExitInvalidArguments},
		"wrapped exit": {err: fmt.Errorf("doctor: %w", NewExitError(7)), want: 7},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsSilentExit(t *testing.T) {
	t.Parallel()
	assert.True(t, IsSilentExit(NewExitError(1)))
	assert.False(t, IsSilentExit(errors.New("boom")))
	assert.False(t, IsSilentExit(nil))
}
