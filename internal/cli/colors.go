package cli

// ANSI color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
)

var colorEnabled = true

// SetColor turns colored command output on or off.
func SetColor(enabled bool) { colorEnabled = enabled }

func colorize(color, s string) string {
	if !colorEnabled {
		return s
	}
	return color + s + ColorReset
}

// FormatStatus returns a colored validation status.
func FormatStatus(status string) string {
	switch status {
	case "valid", "ok":
		return colorize(ColorGreen, status)
	case "invalid", "failed":
		return colorize(ColorRed, status)
	default:
		return status
	}
}
