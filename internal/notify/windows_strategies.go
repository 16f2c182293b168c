package notify

import (
	"fmt"
	"strings"
)

// escapeForPowerShell escapes s for use inside a single-quoted PowerShell string
func escapeForPowerShell(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '\'':
			b.WriteString("''")
		case '`', '$':
			b.WriteRune('`')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func powershell(script string) command {
	return command{name: "powershell", args: []string{"-ExecutionPolicy", "Bypass", "-NoProfile", "-Command", script}}
}

func windowsSound(opts StrategyOptions) func(Request) (command, bool) {
	return func(Request) (command, bool) {
		if file := ValidateSoundFile(opts.SoundFile, opts.Logger); file != "" {
			return powershell(fmt.Sprintf(`
$player = New-Object System.Media.SoundPlayer
$player.SoundLocation = '%s'
$player.PlaySync()
`, escapeForPowerShell(file))), true
		}
		return powershell("[System.Media.SystemSounds]::Asterisk.Play(); Start-Sleep -Milliseconds 500"), true
	}
}

func windowsStrategies(opts StrategyOptions) []*execStrategy {
	sound := windowsSound(opts)

	balloon := &execStrategy{
		name:    "powershell-balloon",
		tool:    "powershell",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		sound:   sound,
		build: func(req Request) command {
			icon := "Info"
			switch req.Severity {
			case SeverityWarning:
				icon = "Warning"
			case SeverityError:
				icon = "Error"
			}
			return powershell(fmt.Sprintf(`
Add-Type -AssemblyName System.Windows.Forms
$balloon = New-Object System.Windows.Forms.NotifyIcon
$path = (Get-Process -id $pid).Path
$balloon.Icon = [System.Drawing.Icon]::ExtractAssociatedIcon($path)
$balloon.BalloonTipIcon = [System.Windows.Forms.ToolTipIcon]::%s
$balloon.BalloonTipText = '%s'
$balloon.BalloonTipTitle = '%s'
$balloon.Visible = $true
$balloon.ShowBalloonTip(5000)
Start-Sleep -Seconds 2
$balloon.Dispose()
`, icon, escapeForPowerShell(req.Body), escapeForPowerShell(req.Title)))
		},
	}

	popup := &execStrategy{
		name:    "wscript-popup",
		tool:    "powershell",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		sound:   sound,
		build: func(req Request) command {
			// 64 = information icon, 48 = exclamation, 16 = stop
			icon := 64
			switch req.Severity {
			case SeverityWarning:
				icon = 48
			case SeverityError:
				icon = 16
			}
			return powershell(fmt.Sprintf(
				`$null = (New-Object -ComObject WScript.Shell).Popup('%s', 8, '%s', %d)`,
				escapeForPowerShell(req.Body), escapeForPowerShell(req.Title), icon))
		},
	}

	toast := &execStrategy{
		name:    "toast-xml",
		tool:    "powershell",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		build: func(req Request) command {
			audio := `$audio.SetAttribute('silent', 'true')`
			if req.WantsSound {
				audio = `$audio.SetAttribute('src', 'ms-winsoundevent:Notification.Default')`
			}
			return powershell(fmt.Sprintf(`
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$textNodes = $template.GetElementsByTagName('text')
$textNodes.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
$textNodes.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
$audio = $template.CreateElement('audio')
%s
$template.DocumentElement.AppendChild($audio) | Out-Null
$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('copilot-notifier').Show($toast)
`, escapeForPowerShell(req.Title), escapeForPowerShell(req.Body), audio))
		},
	}

	broadcast := &execStrategy{
		name:    "msg-broadcast",
		tool:    "msg",
		runner:  opts.Runner,
		timeout: DefaultAttemptTimeout,
		logger:  opts.Logger,
		sound:   sound,
		build: func(req Request) command {
			return command{name: "msg", args: []string{"*", "/TIME:8", fmt.Sprintf("%s: %s", req.Title, req.Body)}}
		},
	}

	return []*execStrategy{balloon, popup, toast, broadcast}
}
