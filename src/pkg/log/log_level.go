package log

import (
	"fmt"
	"strings"
)

// LogLevel represents the verbosity of the info log
type LogLevel int

const (
	LevelCommand LogLevel = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel
func (l LogLevel) String() string {
	switch l {
	case LevelCommand:
		return "COMMAND"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name such as "info" into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	for l := LevelCommand; l <= LevelDebug; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}
