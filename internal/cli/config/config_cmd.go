package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/copilot-notifier/copilot-notifier/internal/config"
)

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in user or project config.

By default, sets the value in the user-level config (~/.config/copilot-notifier/config.yml).
Use --project to set in the project-level config (.copilot-notifier/config.yml).

The value is validated against the key's type before it is written.`,
	Example: `  # Require longer suggestions before alerting
  copilot-notifier config set minimum_suggestion_length 20

  # Move the editor bridge
  copilot-notifier config set bridge.addr 127.0.0.1:9000

  # Use error severity in this project only
  copilot-notifier config set notification_type error --project`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get the current value of a configuration key.

Shows the effective value and which config file it came from.`,
	Example: `  copilot-notifier config get session_timeout_seconds
  copilot-notifier config get bridge.addr --project`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configToggleCmd = &cobra.Command{
	Use:   "toggle <key>",
	Short: "Toggle a boolean configuration value",
	Long: `Toggle a boolean configuration value between true and false.

The current value is the effective one, so toggling a key that is only set
by its default writes the opposite of the default.`,
	Example: `  copilot-notifier config toggle use_sound
  copilot-notifier config toggle show_editor_messages --project`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigToggle,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List all available configuration keys",
	Long:  `Display all valid configuration keys with their types, defaults and descriptions.`,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configToggleCmd)
	configCmd.AddCommand(configKeysCmd)

	for _, cmd := range []*cobra.Command{configSetCmd, configGetCmd, configToggleCmd} {
		AddScopeFlags(cmd)
	}
}

// AddScopeFlags adds the --user and --project flags
func AddScopeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("user", false, "Use the user-level config (default)")
	cmd.Flags().Bool("project", false, "Use the project-level config")
	cmd.MarkFlagsMutuallyExclusive("user", "project")
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if _, err := cfgpkg.GetKeySchema(key); err != nil {
		return formatUnknownKeyError(key)
	}

	filePath, scope, err := ResolveConfigPath(cmd)
	if err != nil {
		return err
	}
	if err := cfgpkg.SetConfigValue(filePath, key, value); err != nil {
		return fmt.Errorf("setting config value: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s config (%s)\n", key, value, scope, filePath)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	out := cmd.OutOrStdout()

	if _, err := cfgpkg.GetKeySchema(key); err != nil {
		return formatUnknownKeyError(key)
	}
	keyPath, err := cfgpkg.ParseKeyPath(key)
	if err != nil {
		return fmt.Errorf("parsing key path: %w", err)
	}

	useUser, _ := cmd.Flags().GetBool("user")
	useProject, _ := cmd.Flags().GetBool("project")
	if useUser || useProject {
		return getFromSpecificScope(out, key, keyPath, useProject)
	}
	return getEffectiveValue(out, key)
}

func getFromSpecificScope(out io.Writer, key string, keyPath []string, useProject bool) error {
	filePath, scope := cfgpkg.ProjectConfigPath(), "project"
	if !useProject {
		var err error
		filePath, err = cfgpkg.UserConfigPath()
		if err != nil {
			return fmt.Errorf("getting user config path: %w", err)
		}
		scope = "user"
	}

	value, found := getValueFromFile(filePath, keyPath)
	if !found {
		fmt.Fprintf(out, "%s: not set in %s config\n", key, scope)
		return nil
	}
	fmt.Fprintf(out, "%s: %s (from %s config)\n", key, value, scope)
	return nil
}

// getEffectiveValue prints the merged value, naming the highest-priority source that sets it
func getEffectiveValue(out io.Writer, key string) error {
	cfg, err := cfgpkg.Load(cfgpkg.DefaultPaths(), nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %v (%s)\n", key, value, valueSource(key))
	return nil
}

func valueSource(key string) string {
	envKey := cfgpkg.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
	if _, ok := os.LookupEnv(envKey); ok {
		return "from " + envKey
	}
	keyPath, err := cfgpkg.ParseKeyPath(key)
	if err != nil {
		return "default"
	}
	if _, found := getValueFromFile(cfgpkg.ProjectConfigPath(), keyPath); found {
		return "from project config"
	}
	if userPath, err := cfgpkg.UserConfigPath(); err == nil {
		if _, found := getValueFromFile(userPath, keyPath); found {
			return "from user config"
		}
	}
	return "default"
}

func getValueFromFile(filePath string, keyPath []string) (string, bool) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", false
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", false
	}
	node := cfgpkg.GetNestedValue(&root, keyPath)
	if node == nil {
		return "", false
	}
	return node.Value, true
}

func runConfigToggle(cmd *cobra.Command, args []string) error {
	key := args[0]
	if _, err := cfgpkg.GetKeySchema(key); err != nil {
		return formatUnknownKeyError(key)
	}

	current, next, filePath, scope, err := Toggle(cmd, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Toggled %s: %t -> %t in %s config (%s)\n",
		key, current, next, scope, filePath)
	return nil
}

// Toggle flips the effective value of a boolean key and writes it to the
// scope selected by the command's --user/--project flags.
func Toggle(cmd *cobra.Command, key string) (current, next bool, filePath, scope string, err error) {
	cfg, err := cfgpkg.Load(cfgpkg.DefaultPaths(), nil)
	if err != nil {
		return false, false, "", "", fmt.Errorf("loading config: %w", err)
	}
	current, err = cfg.Bool(key)
	if err != nil {
		if errors.Is(err, cfgpkg.ErrNotBool) {
			return false, false, "", "", fmt.Errorf("key %q is not a boolean: %w", key, err)
		}
		return false, false, "", "", err
	}

	filePath, scope, err = ResolveConfigPath(cmd)
	if err != nil {
		return false, false, "", "", err
	}
	next, err = cfgpkg.ToggleConfigValue(filePath, key, current)
	if err != nil {
		return false, false, "", "", fmt.Errorf("toggling %s: %w", key, err)
	}
	return current, next, filePath, scope, nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available configuration keys:")
	fmt.Fprintln(out)

	for _, key := range cfgpkg.SortedKeys() {
		schema := cfgpkg.KnownKeys[key]
		typeInfo := schema.Type.String()
		if schema.Type == cfgpkg.TypeEnum {
			typeInfo = fmt.Sprintf("enum (%s)", strings.Join(schema.AllowedValues, ", "))
		}
		fmt.Fprintf(out, "  %-30s %-32s default: %v\n", key, typeInfo, schema.Default)
		fmt.Fprintf(out, "    %s\n", schema.Description)
		fmt.Fprintln(out)
	}
	return nil
}

// ResolveConfigPath returns the file selected by --user/--project.
// The project scope requires a .copilot-notifier directory in the working directory.
func ResolveConfigPath(cmd *cobra.Command) (filePath, scope string, err error) {
	useProject, _ := cmd.Flags().GetBool("project")
	if useProject {
		projectPath := cfgpkg.ProjectConfigPath()
		if _, err := os.Stat(filepath.Dir(projectPath)); os.IsNotExist(err) {
			return "", "", fmt.Errorf("not in a project directory (no %s directory found)", filepath.Dir(projectPath))
		}
		return projectPath, "project", nil
	}

	userPath, err := cfgpkg.UserConfigPath()
	if err != nil {
		return "", "", fmt.Errorf("getting user config path: %w", err)
	}
	return userPath, "user", nil
}

func formatUnknownKeyError(key string) error {
	return fmt.Errorf("unknown configuration key: %q\n\nValid keys:\n  %s",
		key, strings.Join(cfgpkg.SortedKeys(), "\n  "))
}
