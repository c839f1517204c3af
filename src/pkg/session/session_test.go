package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/data"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/replication"
)

type charMeasurer struct{}

func (charMeasurer) Measure(text string, size float32, _ model.FontStyle) (float32, float32) {
	return float32(len(text)) * 0.1 * size, size
}

func newTestManager(t *testing.T, participant string) *SessionManager {
	t.Helper()
	logger := log.NewDiscardLogger()
	cfg := &model.Config{
		Participant:   participant,
		PixelsPerUnit: 40,
		SaveDir:       t.TempDir(),
		ExportDir:     t.TempDir(),
	}
	dm, err := data.NewDataManager(nil, nil, charMeasurer{}, cfg, logger)
	require.NoError(t, err)
	sm, err := NewSessionManager(dm, logger)
	require.NoError(t, err)
	t.Cleanup(sm.Stop)
	return sm
}

func command(scope, operation string, args ...string) model.Command {
	return model.Command{Scope: scope, Operation: operation, Args: args}
}

// runner returns a helper running commands in a fresh session of sm.
func runner(t *testing.T, sm *SessionManager) (string, func(scope, operation string, args ...string) (interface{}, error)) {
	t.Helper()
	id, err := sm.SessionAdd()
	require.NoError(t, err)
	return id, func(scope, operation string, args ...string) (interface{}, error) {
		return sm.SessionRun(id, command(scope, operation, args...))
	}
}

func mustRun(t *testing.T, run func(string, string, ...string) (interface{}, error), scope, operation string, args ...string) string {
	t.Helper()
	res, err := run(scope, operation, args...)
	require.NoError(t, err, "%s %s %v", scope, operation, args)
	s, ok := res.(string)
	require.True(t, ok, "result of %s %s is %T", scope, operation, res)
	return s
}

func TestSessionCommandValidate(t *testing.T) {
	logger := log.NewDiscardLogger()
	tests := []struct {
		name  string
		cmd   model.Command
		valid bool
	}{
		{"empty scope", command("", "draw"), false},
		{"empty operation", command("line", ""), false},
		{"unknown scope", command("user", "add", "bob"), false},
		{"unknown operation", command("line", "erase"), false},
		{"line without points", command("line", "draw"), false},
		{"line with loop", command("line", "draw", "0,0", "1,1", "--loop"), true},
		{"option not accepted", command("line", "draw", "0,0", "--keep"), false},
		{"list takes no arguments", command("surface", "list", "x"), false},
		{"node add", command("node", "add", "theme", "0,0", "Root"), true},
		{"node add with parent", command("node", "add", "leaf", "0,0", "Leaf", "."), true},
		{"node add too many", command("node", "add", "leaf", "0,0", "Leaf", ".", "x"), false},
		{"unbounded text", command("text", "add", "0,0", "a", "b", "c", "d"), true},
		{"export all", command("file", "export", "all.json", "--all"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSessionCommand(tt.cmd, logger)
			err := c.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	usage, ok := Usage("object", "glide")
	assert.True(t, ok)
	assert.Equal(t, "<object> <x,y> <ms>", usage)
}

func TestEveryRuleHasHandler(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, _ := runner(t, sm)
	s, ok := sm.SessionGet(id)
	require.True(t, ok)
	for scope, ops := range commandRules {
		for op := range ops {
			_, ok := s.commandHandlers[scope][op]
			assert.True(t, ok, "no handler for %s %s", scope, op)
		}
	}
	for scope, ops := range s.commandHandlers {
		for op := range ops {
			_, ok := commandRules[scope][op]
			assert.True(t, ok, "no argument rule for %s %s", scope, op)
		}
	}
}

func TestDrawingCommands(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, run := runner(t, sm)

	_, err := run("line", "draw", "0,0", "1,0")
	require.EqualError(t, err, "no surface selected")

	assert.Equal(t, "board", mustRun(t, run, "surface", "add", "board", "", "test", "board"))
	s, _ := sm.SessionGet(id)
	require.NotNil(t, s.Surface)
	assert.Equal(t, "test board", s.Surface.Description)

	lineID := mustRun(t, run, "line", "draw", "0,0", "1,0", "1,1")
	assert.True(t, strings.HasPrefix(lineID, model.PrefixLine+"-"))
	assert.Equal(t, lineID, s.Last)

	mustRun(t, run, "object", "color", ".", "#ff0000")
	assert.Equal(t, model.Color{R: 1, G: 0, B: 0, A: 1}, s.Surface.Objects[lineID].Line.PrimaryColor)

	// New objects take the session drawing context.
	mustRun(t, run, "context", "color", "#00ff00")
	mustRun(t, run, "context", "thickness", "0.2")
	green := mustRun(t, run, "line", "draw", "0,0", "2,2")
	assert.Equal(t, float32(1), s.Surface.Objects[green].Line.PrimaryColor.G)
	assert.Equal(t, float32(0.2), s.Surface.Objects[green].Line.Thickness)

	res := mustRun(t, run, "line", "draw", "3,3")
	assert.Contains(t, res, "(warning:")

	mustRun(t, run, "line", "begin", "0,0")
	assert.Equal(t, "2 of 2 points added", mustRun(t, run, "line", "point", "1,0", "1,1"))
	loopID := mustRun(t, run, "line", "end", "--loop")
	loop := s.Surface.Objects[loopID].Line
	assert.True(t, loop.Loop)
	assert.Len(t, loop.Points, 3)

	_, err = run("line", "end")
	assert.True(t, model.IsValidation(err))

	shapeID := mustRun(t, run, "shape", "add", "Square", "5,5", "2")
	assert.True(t, s.Surface.Objects[shapeID].Line.Loop)
	_, err = run("shape", "add", "star", "5,5", "2")
	assert.Error(t, err)

	textID := mustRun(t, run, "text", "add", "0,4", "hello", "world")
	assert.Equal(t, "hello world", s.Surface.Objects[textID].Text.Content)
	mustRun(t, run, "text", "update", ".", "bye")
	assert.Equal(t, "bye", s.Surface.Objects[textID].Text.Content)

	_, err = run("image", "add", "missing.png", "0,0")
	assert.True(t, errors.Is(err, model.ErrFeatureDisabled))

	_, err = run("object", "move", ".", "nowhere")
	assert.Error(t, err)
}

func TestSplitCommand(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, run := runner(t, sm)
	mustRun(t, run, "surface", "add", "board")
	lineID := mustRun(t, run, "line", "draw", "0,0", "1,0", "2,0", "3,0", "4,0")

	res := mustRun(t, run, "line", "split", ".", "2,0")
	assert.Contains(t, res, "into 2 parts")

	s, _ := sm.SessionGet(id)
	_, ok := s.Surface.Object(lineID)
	assert.False(t, ok)
	assert.Len(t, s.Surface.OnPage(0), 2)

	_, err := run("line", "split", s.Last, "40,40")
	assert.True(t, model.IsValidation(err))
}

func TestNodeCommands(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, run := runner(t, sm)
	mustRun(t, run, "surface", "add", "board")

	theme := mustRun(t, run, "node", "add", "theme", "0,0", "Root")
	sub := mustRun(t, run, "node", "add", "subtheme", "3,0", "Ideas", theme)
	leaf := mustRun(t, run, "node", "add", "leaf", "3,2", "Detail", ".")

	s, _ := sm.SessionGet(id)
	assert.Equal(t, sub, s.Surface.Objects[leaf].Node.ParentID)
	assert.Equal(t, 2, s.Surface.Objects[leaf].Node.Layer)
	assert.Equal(t, sub, mustRun(t, run, "node", "children", theme))

	view := mustRun(t, run, "node", "view")
	assert.Contains(t, view, "Root [theme]")
	assert.Contains(t, view, "    Detail [leaf]")
	assert.Equal(t, "Surface is consistent", mustRun(t, run, "surface", "validate"))

	_, err := run("node", "kind", theme, "leaf")
	assert.True(t, model.IsValidation(err))
	_, err = run("node", "parent", sub, leaf)
	assert.Error(t, err)
	_, err = run("object", "delete", s.Surface.Objects[leaf].Node.BranchLineID)
	assert.True(t, model.IsValidation(err))

	mustRun(t, run, "node", "update", sub, "Better", "ideas")
	assert.Equal(t, "Better ideas", s.Surface.Objects[sub].Node.Label.Content)

	assert.Equal(t, "5 objects removed", mustRun(t, run, "node", "delete", theme))
	assert.Empty(t, s.Surface.Nodes())
	assert.Equal(t, "No mind-map nodes", mustRun(t, run, "node", "view"))
}

func TestPageAndFileCommands(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, run := runner(t, sm)
	mustRun(t, run, "surface", "add", "board")
	mustRun(t, run, "line", "draw", "0,0", "1,1")

	assert.Equal(t, "Page 1 added", mustRun(t, run, "page", "add"))
	assert.Equal(t, "Page 1 of 2", mustRun(t, run, "page", "switch", "1"))
	textID := mustRun(t, run, "text", "add", "0,0", "hello")
	assert.Contains(t, mustRun(t, run, "page", "list"), "* page 1: 1 objects")
	assert.Contains(t, mustRun(t, run, "layer", "list"), "next order 2")

	mustRun(t, run, "page", "move", textID, "0")
	s, _ := sm.SessionGet(id)
	assert.Equal(t, 0, s.Surface.Objects[textID].Page)
	assert.Equal(t, model.StateHidden, s.Surface.Objects[textID].State)

	assert.Equal(t, "2 objects removed from page 0", mustRun(t, run, "page", "clear", "0"))
	_, err := run("page", "clear", "5")
	assert.True(t, model.IsValidation(err))

	mustRun(t, run, "text", "add", "1,1", "kept")
	res := mustRun(t, run, "file", "export", "board.yaml")
	assert.Contains(t, res, "1 surfaces exported")

	mustRun(t, run, "surface", "delete")
	assert.Nil(t, s.Surface)
	assert.Equal(t, "No surfaces", mustRun(t, run, "surface", "list"))

	assert.Equal(t, "1 surfaces imported, board selected", mustRun(t, run, "file", "import", "board.yaml"))
	require.NotNil(t, s.Surface)
	assert.Equal(t, 1, s.Surface.CurrentPage)
	assert.Len(t, s.Surface.OnPage(1), 1)
}

func TestContextCommands(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, run := runner(t, sm)
	s, _ := sm.SessionGet(id)

	mustRun(t, run, "context", "linekind", "dashed50")
	mustRun(t, run, "context", "colorkind", "gradient")
	mustRun(t, run, "context", "font", "0.8", "bold+italic")
	mustRun(t, run, "context", "fill", "on", "#0000ff")
	assert.Equal(t, model.Dashed50, s.Context.LineKind)
	assert.Equal(t, model.Gradient, s.Context.ColorKind)
	assert.Equal(t, float32(0.8), s.Context.FontSize)
	assert.True(t, s.Context.FontStyles.Has(model.FontBold|model.FontItalic))
	assert.True(t, s.Context.FillOut)
	assert.Contains(t, mustRun(t, run, "context", "show"), "font 0.8 bold+italic")

	_, err := run("context", "thickness", "-1")
	assert.Error(t, err)
	_, err = run("context", "font", "1", "wavy")
	assert.Error(t, err)

	mustRun(t, run, "context", "reset")
	assert.Equal(t, model.DefaultDrawingContext(), s.Context)
}

func TestTransitionsRunOnExecutor(t *testing.T) {
	sm := newTestManager(t, "alice")
	_, run := runner(t, sm)
	mustRun(t, run, "surface", "add", "board")
	lineID := mustRun(t, run, "line", "draw", "0,0", "1,0")

	assert.Contains(t, mustRun(t, run, "object", "glide", ".", "5,5", "40"), "gliding")
	assert.Contains(t, mustRun(t, run, "object", "delete", ".", "60"), "will be deleted")

	require.Eventually(t, func() bool {
		_, err := run("object", "info", lineID)
		return errors.Is(err, model.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRemoteCommandsAreApplied(t *testing.T) {
	alice := newTestManager(t, "alice")
	bob := newTestManager(t, "bob")
	bob.dataManager.Bridge.SetSender(func(cmd replication.Command) error {
		alice.ApplyRemote(cmd)
		return nil
	})

	_, bobRun := runner(t, bob)
	mustRun(t, bobRun, "surface", "add", "board")
	lineID := mustRun(t, bobRun, "line", "draw", "0,0", "1,0")
	mustRun(t, bobRun, "object", "color", ".", "#ff0000")

	_, aliceRun := runner(t, alice)
	require.Eventually(t, func() bool {
		if _, err := aliceRun("surface", "select", "board"); err != nil {
			return false
		}
		info, err := aliceRun("object", "info", lineID)
		return err == nil && strings.Contains(info.(string), "#ff0000ff")
	}, 2*time.Second, 10*time.Millisecond)

	// Alice draws on top of the replicated line without a collision.
	own := mustRun(t, aliceRun, "line", "draw", "0,1", "1,1")
	assert.Contains(t, mustRun(t, aliceRun, "layer", "list"), own)
	assert.Equal(t, "Surface is consistent", mustRun(t, aliceRun, "surface", "validate"))
}

func TestRotateAndClipboardCommands(t *testing.T) {
	alice := newTestManager(t, "alice")
	bob := newTestManager(t, "bob")
	var (
		mu    sync.Mutex
		verbs []replication.Verb
	)
	bob.dataManager.Bridge.SetSender(func(cmd replication.Command) error {
		mu.Lock()
		verbs = append(verbs, cmd.Verb)
		mu.Unlock()
		alice.ApplyRemote(cmd)
		return nil
	})
	dm := bob.dataManager.DrawableManager

	id, run := runner(t, bob)
	mustRun(t, run, "surface", "add", "board")
	s, _ := bob.SessionGet(id)
	lineID := mustRun(t, run, "line", "draw", "0,0", "2,0")

	assert.Contains(t, mustRun(t, run, "object", "rotate", ".", "90"), "rotated")
	assert.Equal(t, model.V3(0, 0, 90), s.Surface.Objects[lineID].Transform.EulerAngles)
	mustRun(t, run, "object", "rotate", ".", "10,20,30")
	_, err := run("object", "rotate", ".", "sideways")
	assert.Error(t, err)

	_, err = run("object", "paste")
	assert.EqualError(t, err, "clipboard is empty")
	mustRun(t, run, "object", "copy", lineID)
	pasted := mustRun(t, run, "object", "paste", "5,5")
	assert.NotEqual(t, lineID, pasted)
	assert.Equal(t, pasted, s.Last)
	copied := s.Surface.Objects[pasted]
	assert.Equal(t, 2, copied.Order)
	assert.True(t, dm.Planar(copied).ApproxEqual(model.V3(5, 5, 0)))
	assert.Equal(t, model.V3(10, 20, 30), copied.Transform.EulerAngles)
	assert.Len(t, copied.Line.Points, 2)

	onPage := mustRun(t, run, "object", "paste", "1")
	assert.Equal(t, 1, s.Surface.Objects[onPage].Page)
	assert.Equal(t, 1, s.Surface.Objects[onPage].Order)
	assert.Equal(t, model.StateHidden, s.Surface.Objects[onPage].State)

	assert.Contains(t, mustRun(t, run, "object", "cut", pasted), "1 objects removed")
	_, ok := s.Surface.Object(pasted)
	assert.False(t, ok)

	// the clipboard survives a surface change
	mustRun(t, run, "surface", "add", "wall")
	onWall := mustRun(t, run, "object", "paste")
	assert.Equal(t, "wall", s.Surface.ID)
	assert.True(t, dm.Planar(s.Surface.Objects[onWall]).ApproxEqual(model.V3(5, 5, 0)))
	assert.Equal(t, "Surface is consistent", mustRun(t, run, "surface", "validate"))

	theme := mustRun(t, run, "node", "add", "theme", "0,0", "Root")
	mustRun(t, run, "object", "copy", theme)
	twin := mustRun(t, run, "object", "paste", "4,4")
	assert.NotEqual(t, theme, twin)
	assert.Equal(t, "Root", s.Surface.Objects[twin].Node.Label.Content)
	_, err = run("object", "paste", "4,4", "2")
	assert.True(t, model.IsValidation(err))

	_, aliceRun := runner(t, alice)
	require.Eventually(t, func() bool {
		if _, err := aliceRun("surface", "select", "board"); err != nil {
			return false
		}
		info, err := aliceRun("object", "info", lineID)
		if err != nil || !strings.Contains(info.(string), model.V3(10, 20, 30).String()) {
			return false
		}
		if _, err := aliceRun("object", "info", onPage); err != nil {
			return false
		}
		_, err = aliceRun("object", "info", pasted)
		return errors.Is(err, model.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, verbs, replication.ChangeTransform)
	assert.Contains(t, verbs, replication.CreateLine)
	assert.Contains(t, verbs, replication.AddMindMapNode)
}

func TestSessionLifecycle(t *testing.T) {
	sm := newTestManager(t, "alice")
	id, run := runner(t, sm)

	_, err := run("system", "exit")
	assert.True(t, errors.Is(err, ErrExit))
	assert.Contains(t, mustRun(t, run, "system", "status"), "participant alice")

	list := sm.SessionList()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "alice", list[0].Participant)

	s, _ := sm.SessionGet(id)
	s.LastActivity = time.Now().Add(-defaultSessionTimeout - time.Minute)
	sm.cleanupInactiveSessions()
	_, ok := sm.SessionGet(id)
	assert.False(t, ok)

	_, err = sm.SessionRun(id, command("system", "status"))
	assert.EqualError(t, err, "session not found")

	id, _ = runner(t, sm)
	sm.Stop()
	_, err = sm.SessionRun(id, command("system", "status"))
	assert.True(t, errors.Is(err, ErrStopped))
	sm.ApplyRemote(replication.Command{ID: "late"})
}
