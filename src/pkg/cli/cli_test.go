package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/data"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/session"
)

type charMeasurer struct{}

func (charMeasurer) Measure(text string, size float32, _ model.FontStyle) (float32, float32) {
	return float32(len(text)) * 0.1 * size, size
}

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer, *session.SessionManager) {
	t.Helper()
	logger := log.NewDiscardLogger()
	cfg := &model.Config{
		Participant:   "tester",
		PixelsPerUnit: 40,
		SaveDir:       t.TempDir(),
		ExportDir:     t.TempDir(),
	}
	dm, err := data.NewDataManager(nil, nil, charMeasurer{}, cfg, logger)
	require.NoError(t, err)
	sm, err := session.NewSessionManager(dm, logger)
	require.NoError(t, err)
	t.Cleanup(sm.Stop)

	out := &bytes.Buffer{}
	c, err := newCLI(sm, out, logger)
	require.NoError(t, err)
	return c, out, sm
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.Command
		wantErr bool
	}{
		{
			name:  "scope and operation",
			input: "surface list",
			want:  model.Command{Scope: "surface", Operation: "list", Args: []string{}},
		},
		{
			name:  "scope only",
			input: "help",
			want:  model.Command{Scope: "help", Args: []string{}},
		},
		{
			name:  "case-insensitive keywords",
			input: "LINE Draw 0,0 1,1 --loop",
			want:  model.Command{Scope: "line", Operation: "draw", Args: []string{"0,0", "1,1", "--loop"}},
		},
		{
			name:  "quoted argument",
			input: `node add theme 0,0 "Big idea"`,
			want:  model.Command{Scope: "node", Operation: "add", Args: []string{"theme", "0,0", "Big idea"}},
		},
		{
			name:  "empty quoted argument",
			input: `text update . ""`,
			want:  model.Command{Scope: "text", Operation: "update", Args: []string{".", ""}},
		},
		{
			name:  "extra whitespace",
			input: "  page \t switch   2 ",
			want:  model.Command{Scope: "page", Operation: "switch", Args: []string{"2"}},
		},
		{name: "empty", input: "   ", wantErr: true},
		{name: "unterminated quote", input: `text add 0,0 "open`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHelpCoversEveryCommand(t *testing.T) {
	documented := make(map[[2]string]bool)
	for _, h := range commandHelps {
		_, ok := session.Usage(h.Scope, h.Operation)
		assert.True(t, ok, "help for unknown command %s %s", h.Scope, h.Operation)
		documented[[2]string{h.Scope, h.Operation}] = true
	}
	for _, c := range session.Commands() {
		assert.True(t, documented[c], "no help for %s %s", c[0], c[1])
	}
}

func TestHelpOutput(t *testing.T) {
	c, out, _ := newTestCLI(t)

	assert.False(t, c.execute("help"))
	assert.Contains(t, out.String(), "Available commands:")
	assert.Contains(t, out.String(), "\nsurface:\n")

	out.Reset()
	c.execute("help LINE")
	assert.Contains(t, out.String(), "Commands for line:")
	assert.Contains(t, out.String(), "split")

	out.Reset()
	c.execute("help line split")
	assert.Contains(t, out.String(), "Syntax: line split <line> <x,y> [radius] [--keep]")
	assert.Contains(t, out.String(), "--keep: Keep the matched points")

	out.Reset()
	c.execute("help page view")
	assert.Contains(t, out.String(), "No help found for page view")

	out.Reset()
	c.execute("help line split now")
	assert.Contains(t, out.String(), "Invalid help command")
}

func TestExecute(t *testing.T) {
	c, out, _ := newTestCLI(t)

	assert.False(t, c.execute(""))
	assert.Empty(t, out.String())

	assert.False(t, c.execute("surface add board"))
	assert.Contains(t, out.String(), "Result: board")

	out.Reset()
	assert.False(t, c.execute(`text add 1,1 "Hello world"`))
	assert.Contains(t, out.String(), "Result: ")
	assert.NotContains(t, out.String(), "Error")

	out.Reset()
	assert.False(t, c.execute("line erase 0,0"))
	assert.Contains(t, out.String(), "Error: invalid line operation: erase")

	out.Reset()
	assert.False(t, c.execute(`text add "0,0`))
	assert.Contains(t, out.String(), "Error parsing command: unterminated quote")

	assert.True(t, c.execute("exit"))
	assert.True(t, c.execute("system quit"))
}

func TestExecuteAfterStop(t *testing.T) {
	c, out, sm := newTestCLI(t)
	sm.Stop()

	assert.True(t, c.execute("surface list"))
	assert.Contains(t, out.String(), "Error: session manager stopped")
}
