package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"inkboard/src/pkg/model"
)

// parseVec parses "x,y" or "x,y,z" into a local-space point.
func parseVec(arg string) (model.Vec3, error) {
	parts := strings.Split(arg, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return model.Vec3{}, fmt.Errorf("invalid point %q: expected x,y or x,y,z", arg)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := parseFloat(p)
		if err != nil {
			return model.Vec3{}, fmt.Errorf("invalid point %q: %w", arg, err)
		}
		v[i] = f
	}
	return model.V3(v[0], v[1], v[2]), nil
}

func parseFloat(arg string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(arg), 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", arg)
	}
	return float32(f), nil
}

func parsePositive(arg, what string) (float32, error) {
	f, err := parseFloat(arg)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", what, arg)
	}
	return f, nil
}

func parseInt(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", arg)
	}
	return n, nil
}

// parseMillis parses a non-negative duration in milliseconds.
func parseMillis(arg string) (time.Duration, error) {
	n, err := parseInt(arg)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %d", n)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func parseBool(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch %q: expected on or off", arg)
}

// parseFontStyles parses a '+'-joined list such as "bold+italic".
func parseFontStyles(arg string) (model.FontStyle, error) {
	styles := model.FontNormal
	for _, name := range strings.Split(strings.ToLower(arg), "+") {
		switch name {
		case "normal", "":
		case "bold":
			styles |= model.FontBold
		case "italic":
			styles |= model.FontItalic
		case "underline":
			styles |= model.FontUnderline
		case "strike":
			styles |= model.FontStrike
		default:
			return 0, fmt.Errorf("unknown font style %q", name)
		}
	}
	return styles, nil
}

// splitFlags separates "--name" options from positional arguments.
func splitFlags(args []string) ([]string, map[string]bool) {
	flags := make(map[string]bool)
	positional := make([]string, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			flags[strings.TrimPrefix(a, "--")] = true
			continue
		}
		positional = append(positional, a)
	}
	return positional, flags
}
