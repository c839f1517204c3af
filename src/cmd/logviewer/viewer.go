package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

// keys printed on the first line of an entry, in this order
var headlineKeys = []string{"sessionID", "scope", "operation", "origin", "verb"}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// LogEntry is one JSON line written by the application logger.
type LogEntry map[string]interface{}

// Viewer follows the *.log files of a directory and prints new entries.
type Viewer struct {
	dir       string
	filter    string
	minLevel  string
	color     bool
	out       io.Writer
	positions map[string]int64
}

// NewViewer creates a viewer for dir. Entries below minLevel or not
// containing filter (case-insensitive) are skipped.
func NewViewer(dir, filter, minLevel string, color bool, out io.Writer) (*Viewer, error) {
	minLevel = strings.ToUpper(minLevel)
	if _, ok := levelRank[minLevel]; !ok {
		return nil, fmt.Errorf("unknown level %q", minLevel)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("log directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Viewer{
		dir:       dir,
		filter:    strings.ToLower(filter),
		minLevel:  minLevel,
		color:     color,
		out:       out,
		positions: make(map[string]int64),
	}, nil
}

// Run prints the existing entries, then follows the directory until ctx is cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(v.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", v.dir, err)
	}

	if err := v.ScanAll(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isLogFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				delete(v.positions, event.Name)
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				if err := v.Scan(event.Name); err != nil {
					v.notice(colorRed, fmt.Sprintf("Error reading %s: %v", filepath.Base(event.Name), err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			v.notice(colorRed, fmt.Sprintf("Watcher error: %v", err))
		}
	}
}

// ScanAll prints the unread entries of every log file in the directory.
func (v *Viewer) ScanAll() error {
	files, err := filepath.Glob(filepath.Join(v.dir, "*.log"))
	if err != nil {
		return fmt.Errorf("error reading log directory: %w", err)
	}
	sort.Strings(files)
	for _, path := range files {
		if err := v.Scan(path); err != nil {
			v.notice(colorRed, fmt.Sprintf("Error reading %s: %v", filepath.Base(path), err))
		}
	}
	return nil
}

// Scan prints the entries appended to path since the last scan. A file
// shorter than the remembered position is read from the start.
func (v *Viewer) Scan(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	pos, known := v.positions[path]
	if !known {
		v.notice(colorGreen, "Following "+filepath.Base(path))
	}
	if stat.Size() < pos {
		v.notice(colorYellow, filepath.Base(path)+" has been truncated, starting from beginning")
		pos = 0
	}
	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// partial line, read it again once complete
			break
		}
		if err != nil {
			return err
		}
		pos += int64(len(line))
		v.print(line)
	}
	v.positions[path] = pos
	return nil
}

func (v *Viewer) print(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		v.notice(colorRed, fmt.Sprintf("Error parsing log entry: %v", err))
		return
	}
	level, _ := entry["level"].(string)
	if rank, ok := levelRank[strings.ToUpper(level)]; ok && rank < levelRank[v.minLevel] {
		return
	}
	formatted := v.formatLogEntry(entry)
	if v.filter != "" && !strings.Contains(strings.ToLower(formatted), v.filter) {
		return
	}
	fmt.Fprintln(v.out, formatted)
}

func (v *Viewer) paint(color, s string) string {
	if !v.color {
		return s
	}
	return color + s + colorReset
}

func (v *Viewer) notice(color, msg string) {
	fmt.Fprintln(v.out, v.paint(color, msg))
}

func (v *Viewer) formatLogEntry(entry LogEntry) string {
	timestamp, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)

	var levelColor string
	switch strings.ToUpper(level) {
	case "DEBUG":
		levelColor = colorBlue
	case "INFO":
		levelColor = colorGreen
	case "WARN":
		levelColor = colorYellow
	case "ERROR":
		levelColor = colorRed
	default:
		levelColor = colorWhite
	}

	var b strings.Builder
	b.WriteString(v.paint(colorMagenta, formatTimestamp(timestamp)))
	b.WriteByte(' ')
	b.WriteString(v.paint(levelColor, padRight(strings.ToUpper(level), 5)))
	b.WriteByte(' ')
	b.WriteString(msg)

	shown := map[string]bool{"time": true, "level": true, "msg": true}
	for _, key := range headlineKeys {
		if value, ok := entry[key]; ok {
			fmt.Fprintf(&b, " %s=%v", key, value)
			shown[key] = true
		}
	}

	var rest []string
	for key := range entry {
		if !shown[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(&b, "\n    %s %v", v.paint(colorCyan, key+":"), entry[key])
	}
	return b.String()
}

func formatTimestamp(timestamp string) string {
	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Format("06-01-02 15:04:05.000000")
}

func padRight(str string, length int) string {
	if len(str) >= length {
		return str
	}
	return str + strings.Repeat(" ", length-len(str))
}

func isLogFile(path string) bool {
	return filepath.Ext(path) == ".log"
}
