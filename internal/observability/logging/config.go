package logging

import "fmt"

// Config selects format, minimum level and destination
type Config struct {
	Format string
	Level  string
	Output string
	OpID   string // attached to Debug/Info/Warn/Error entries
}

func DefaultConfig() Config {
	return Config{
		Format: FormatPretty,
		Level:  LevelInfo,
		Output: "stderr",
	}
}

const (
	FormatPretty = "pretty"
	FormatJSONL  = "jsonl"
	FormatOff    = "off"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Validate rejects unknown formats and levels
func (c Config) Validate() error {
	switch c.Format {
	case "", FormatPretty, FormatJSONL, FormatOff:
	default:
		return fmt.Errorf("unknown log format %q (use pretty, jsonl or off)", c.Format)
	}
	switch c.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	return nil
}

func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1 // default to info
	}
}
