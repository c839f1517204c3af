package replication

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/codec"
	"inkboard/src/pkg/event"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/mindmap"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/page"
	"inkboard/src/pkg/surface"
)

type charMeasurer struct{}

func (charMeasurer) Measure(text string, size float32, _ model.FontStyle) (float32, float32) {
	return float32(len(text)) * 0.1 * size, size
}

// world is one participant's engine.
type world struct {
	events   *event.EventManager
	registry *surface.Registry
	alloc    *layer.Allocator
	tree     *mindmap.Tree
	pages    *page.Manager
	bridge   *Bridge
	sent     []Command
}

func newWorld(t *testing.T, origin string) *world {
	t.Helper()
	logger := log.NewDiscardLogger()
	w := &world{events: event.NewEventManager(logger)}
	var err error
	w.registry, err = surface.NewRegistry(w.events, logger)
	require.NoError(t, err)
	w.alloc = layer.NewAllocator(0.001, logger)
	w.tree, err = mindmap.NewTree(w.alloc, charMeasurer{}, w.events, logger)
	require.NoError(t, err)
	w.pages, err = page.NewManager(w.alloc, w.events, logger)
	require.NoError(t, err)
	w.bridge, err = NewBridge(origin, w.registry, w.alloc, w.tree, w.pages, charMeasurer{}, w.events, logger)
	require.NoError(t, err)
	w.bridge.SetSender(func(c Command) error {
		w.sent = append(w.sent, c)
		return nil
	})
	return w
}

func (w *world) addLine(t *testing.T, s *model.Surface, id string, pts ...model.Vec3) *model.Drawable {
	t.Helper()
	d := &model.Drawable{ID: id, Kind: model.KindLine, Page: s.CurrentPage, Transform: model.IdentityTransform(),
		Line: &model.Line{Points: pts, Thickness: 0.01, PrimaryColor: model.Black}}
	w.alloc.Place(d, w.alloc.Allocate(s, s.CurrentPage), model.Forward)
	require.NoError(t, surface.Add(s, d))
	event.Drawable(w.events, event.DrawableCreated, s, d)
	return d
}

// wire sends commands through the JSON codec, as the transport does.
func wire(t *testing.T, cmds []Command) []Command {
	t.Helper()
	out := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		data, err := Encode(c)
		require.NoError(t, err)
		decoded, err := Decode(data)
		require.NoError(t, err)
		out = append(out, decoded)
	}
	return out
}

// script runs a session of local edits on alice's board.
func script(t *testing.T, alice *world) *model.Surface {
	t.Helper()
	s, err := alice.registry.Create("board", "holder")
	require.NoError(t, err)

	theme, err := alice.tree.CreateNode(s, mindmap.NodeSpec{Kind: model.Theme, Text: "plan", Position: model.V3(0, 0, 0)})
	require.NoError(t, err)
	sub, err := alice.tree.CreateNode(s, mindmap.NodeSpec{Kind: model.Subtheme, Text: "build", Position: model.V3(3, 1, 0), ParentID: theme.ID})
	require.NoError(t, err)
	leaf, err := alice.tree.CreateNode(s, mindmap.NodeSpec{Kind: model.Leaf, Text: "test", Position: model.V3(3, -2, 0)})
	require.NoError(t, err)
	require.NoError(t, alice.tree.ChangeKind(s, leaf.ID, model.Subtheme, sub.ID))
	require.NoError(t, alice.tree.SetText(s, theme.ID, "release plan"))

	line := alice.addLine(t, s, "Line-a", model.V3(0, 0, 0), model.V3(1, 1, 0), model.V3(2, 0, 0))
	alice.addLine(t, s, "Line-b", model.V3(0, 3, 0), model.V3(1, 3, 0))
	require.NoError(t, alice.tree.ChangeOrder(s, line.ID, 1))
	require.NoError(t, alice.tree.MoveNode(s, sub.ID, model.V3(4, 1, 0)))

	removed, err := surface.Delete(s, "Line-b")
	require.NoError(t, err)
	event.Drawable(alice.events, event.DrawableDeleted, s, removed)
	return s
}

func assertSameBoard(t *testing.T, want, got *model.Surface) {
	t.Helper()
	require.Len(t, got.Objects, len(want.Objects))
	for id, w := range want.Objects {
		g, ok := got.Object(id)
		require.True(t, ok, id)
		assert.Equal(t, w.Kind, g.Kind, id)
		assert.Equal(t, w.Order, g.Order, id)
		assert.Equal(t, w.Page, g.Page, id)
		assert.True(t, w.Transform.Position.ApproxEqual(g.Transform.Position), id)
		if w.Node != nil {
			assert.Equal(t, w.Node.NodeKind, g.Node.NodeKind, id)
			assert.Equal(t, w.Node.ParentID, g.Node.ParentID, id)
			assert.Equal(t, w.Node.Layer, g.Node.Layer, id)
			assert.Equal(t, w.Node.Label.Content, g.Node.Label.Content, id)
		}
	}
}

func TestReplicatedSessionConverges(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")
	board := script(t, alice)

	for _, cmd := range wire(t, alice.sent) {
		require.NoError(t, bob.bridge.ApplyRemote(cmd), cmd.Verb)
	}

	got, err := bob.registry.Find("board", "holder")
	require.NoError(t, err)
	assertSameBoard(t, board, got)
	require.NoError(t, bob.tree.Validate(got))
	require.NoError(t, layer.Verify(got, 0))
	assert.Empty(t, bob.sent, "remote changes must not be echoed")
}

func TestApplyRemoteIsIdempotent(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")
	script(t, alice)
	cmds := wire(t, alice.sent)

	for _, cmd := range cmds {
		require.NoError(t, bob.bridge.ApplyRemote(cmd))
	}
	s, err := bob.registry.Find("board", "holder")
	require.NoError(t, err)
	once := codec.FromSurface(s)
	next := s.Counters[0]

	for _, cmd := range cmds {
		require.NoError(t, bob.bridge.ApplyRemote(cmd))
	}
	assert.Equal(t, once, codec.FromSurface(s))
	assert.Equal(t, next, s.Counters[0])

	first := cmds[0]
	require.NoError(t, bob.bridge.ApplyRemote(first))
	require.NoError(t, bob.bridge.ApplyRemote(first))
	assert.Len(t, s.Objects, len(once.Objects))
}

func TestApplyRemoteReallocatesTakenOrder(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")

	as, err := alice.registry.Create("board", "")
	require.NoError(t, err)
	bs, err := bob.registry.Create("board", "")
	require.NoError(t, err)

	alice.addLine(t, as, "Line-alice", model.V3(0, 0, 0), model.V3(1, 0, 0))
	bob.addLine(t, bs, "Line-bob", model.V3(0, 1, 0), model.V3(1, 1, 0))

	require.NoError(t, bob.bridge.ApplyRemote(alice.sent[0]))
	got, ok := bs.Object("Line-alice")
	require.True(t, ok)
	assert.Equal(t, 2, got.Order)
	require.NoError(t, layer.Verify(bs, 0))
}

// boards creates the same surface on both sides.
func boards(t *testing.T, alice, bob *world) (*model.Surface, *model.Surface) {
	t.Helper()
	as, err := alice.registry.Create("board", "")
	require.NoError(t, err)
	bs, err := bob.registry.Create("board", "")
	require.NoError(t, err)
	return as, bs
}

func TestApplyRemoteOrderChangeSwapsHolder(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")
	as, bs := boards(t, alice, bob)

	// concurrent creates leave the two sides with different local orders
	alice.addLine(t, as, "L1", model.V3(0, 0, 0), model.V3(1, 0, 0))
	bob.addLine(t, bs, "L2", model.V3(0, 1, 0), model.V3(1, 1, 0))
	require.NoError(t, bob.bridge.ApplyRemote(alice.sent[0]))
	require.NoError(t, alice.bridge.ApplyRemote(bob.sent[0]))
	assert.Equal(t, 1, as.Objects["L1"].Order)
	assert.Equal(t, 1, bs.Objects["L2"].Order)

	alice.sent = nil
	alice.addLine(t, as, "L3", model.V3(0, 2, 0), model.V3(1, 2, 0))
	require.NoError(t, alice.tree.ChangeOrder(as, "L3", 1))
	for _, cmd := range wire(t, alice.sent) {
		require.NoError(t, bob.bridge.ApplyRemote(cmd), cmd.Verb)
	}

	require.NoError(t, layer.Verify(bs, 0))
	assert.Equal(t, 1, bs.Objects["L3"].Order)
	orders := map[int]bool{}
	for _, id := range []string{"L1", "L2", "L3"} {
		d, ok := bs.Object(id)
		require.True(t, ok, id)
		orders[d.Order] = true
	}
	assert.Len(t, orders, 3)
}

func TestApplyRemotePageChangeReallocatesTakenOrder(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")
	as, bs := boards(t, alice, bob)

	alice.addLine(t, as, "Line-1", model.V3(0, 0, 0), model.V3(1, 0, 0))
	require.NoError(t, bob.bridge.ApplyRemote(alice.sent[0]))
	require.NoError(t, bob.pages.SwitchPage(bs, 1))
	bob.addLine(t, bs, "Line-bob", model.V3(0, 1, 0), model.V3(1, 1, 0))
	assert.Equal(t, 1, bs.Objects["Line-bob"].Order)

	alice.sent = nil
	require.NoError(t, alice.pages.MoveToPage(as, "Line-1", 1))
	require.Len(t, alice.sent, 1)
	assert.Equal(t, ChangePage, alice.sent[0].Verb)
	assert.Equal(t, 1, as.Objects["Line-1"].Order)

	for _, cmd := range wire(t, alice.sent) {
		require.NoError(t, bob.bridge.ApplyRemote(cmd))
	}
	got := bs.Objects["Line-1"]
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 2, got.Order)
	assert.Equal(t, model.StateActive, got.State)
	require.NoError(t, layer.Verify(bs, 1))
	assert.Equal(t, 3, bob.alloc.Next(bs, 1))
}

func TestDestroyedObjectStaysDestroyed(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")
	as, bs := boards(t, alice, bob)

	alice.addLine(t, as, "L1", model.V3(0, 0, 0), model.V3(1, 0, 0))
	create := alice.sent[0]
	removed, err := surface.Delete(as, "L1")
	require.NoError(t, err)
	event.Drawable(alice.events, event.DrawableDeleted, as, removed)
	remove := alice.sent[1]

	// at-least-once delivery repeats the create after the delete
	for _, cmd := range wire(t, []Command{create, remove, create}) {
		require.NoError(t, bob.bridge.ApplyRemote(cmd))
	}
	_, ok := bs.Object("L1")
	assert.False(t, ok, "destroyed object came back")
	assert.True(t, bs.Destroyed("L1"))

	thick := float32(0.5)
	late := Command{ID: "c1", Origin: "alice", Verb: ChangeThickness, Surface: SurfaceRef{ID: "board"}, ObjectID: "L1", Change: &Change{Thickness: &thick}}
	assert.NoError(t, bob.bridge.ApplyRemote(late))

	// a delete overtaking its create
	early := Command{ID: "d2", Origin: "alice", Verb: Delete, Surface: SurfaceRef{ID: "board"}, ObjectID: "L2"}
	require.NoError(t, bob.bridge.ApplyRemote(early))
	alice.addLine(t, as, "L2", model.V3(0, 1, 0), model.V3(1, 1, 0))
	require.NoError(t, bob.bridge.ApplyRemote(alice.sent[len(alice.sent)-1]))
	_, ok = bs.Object("L2")
	assert.False(t, ok)

	// cleared pages bury their objects too
	bob.addLine(t, bs, "L3", model.V3(0, 2, 0), model.V3(1, 2, 0))
	alice.addLine(t, as, "L3", model.V3(0, 2, 0), model.V3(1, 2, 0))
	recreate := alice.sent[len(alice.sent)-1]
	bob.pages.ClearPage(bs, 0)
	require.NoError(t, bob.bridge.ApplyRemote(recreate))
	_, ok = bs.Object("L3")
	assert.False(t, ok)
	assert.Empty(t, bs.OnPage(0))
}

func TestApplyRemoteDeletePublishesToWatchers(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")
	as, bs := boards(t, alice, bob)
	var watched []string
	bob.events.Watch(event.DrawableDeleted, func(e event.Event) {
		watched = append(watched, e.Data.(event.DrawableEvent).Object.ID)
	})

	alice.addLine(t, as, "L1", model.V3(0, 0, 0), model.V3(1, 0, 0))
	require.NoError(t, bob.bridge.ApplyRemote(alice.sent[0]))
	bob.sent = nil
	require.NoError(t, bob.bridge.ApplyRemote(Command{ID: "d1", Origin: "alice", Verb: Delete, Surface: SurfaceRef{ID: "board"}, ObjectID: "L1"}))

	assert.Equal(t, []string{"L1"}, watched)
	assert.Empty(t, bob.sent, "remote delete is not echoed")
	_, ok := bs.Object("L1")
	assert.False(t, ok)
}

func TestApplyRemotePagesAndUnknownSurface(t *testing.T) {
	alice := newWorld(t, "alice")
	bob := newWorld(t, "bob")

	as, err := alice.registry.Create("note", "wall")
	require.NoError(t, err)
	alice.addLine(t, as, "Line-1", model.V3(0, 0, 0), model.V3(1, 0, 0))
	require.NoError(t, alice.pages.SwitchPage(as, 2))
	alice.addLine(t, as, "Line-2", model.V3(0, 0, 0), model.V3(1, 0, 0))

	for _, cmd := range wire(t, alice.sent) {
		require.NoError(t, bob.bridge.ApplyRemote(cmd))
	}
	bs, err := bob.registry.Find("note", "wall")
	require.NoError(t, err)
	assert.Equal(t, 2, bs.CurrentPage)
	assert.Equal(t, 3, bs.MaxPageSize)
	assert.Equal(t, model.StateHidden, bs.Objects["Line-1"].State)
	assert.Equal(t, model.StateActive, bs.Objects["Line-2"].State)

	alice.sent = nil
	alice.pages.ClearPage(as, 2)
	require.NoError(t, bob.bridge.ApplyRemote(alice.sent[0]))
	_, ok := bs.Object("Line-2")
	assert.False(t, ok)
}

func TestApplyRemoteIgnoresOwnCommandsAndRejectsInvalid(t *testing.T) {
	alice := newWorld(t, "alice")
	s, err := alice.registry.Create("board", "")
	require.NoError(t, err)
	alice.addLine(t, s, "Line-1", model.V3(0, 0, 0), model.V3(1, 0, 0))

	echo := alice.sent[0]
	_, err = surface.Delete(s, "Line-1")
	require.NoError(t, err)
	require.NoError(t, alice.bridge.ApplyRemote(echo))
	_, ok := s.Object("Line-1")
	assert.False(t, ok)

	assert.Error(t, alice.bridge.ApplyRemote(Command{Verb: CreateLine, Surface: SurfaceRef{ID: "x"}}))
	assert.Error(t, alice.bridge.ApplyRemote(Command{Verb: "paint", Surface: SurfaceRef{ID: "x"}, ObjectID: "a", Change: &Change{}}))

	missing := Command{Origin: "bob", Verb: ChangeText, Surface: SurfaceRef{ID: "board"}, ObjectID: "nope", Change: &Change{}}
	assert.Error(t, alice.bridge.ApplyRemote(missing))

	gone := Command{Origin: "bob", Verb: Delete, Surface: SurfaceRef{ID: "board"}, ObjectID: "nope"}
	assert.NoError(t, alice.bridge.ApplyRemote(gone))
}

func TestOnLocalUpdateCarriesChangedFieldsOnly(t *testing.T) {
	alice := newWorld(t, "alice")
	d := &model.Drawable{ID: "Text-1", Kind: model.KindText, Order: 3, Transform: model.IdentityTransform(),
		Text: &model.Text{Content: "hi", FontColor: model.White}}

	cmd, ok := alice.bridge.OnLocalUpdate(SurfaceRef{ID: "s"}, d, []string{event.FieldColor})
	require.True(t, ok)
	assert.Equal(t, ChangeColor, cmd.Verb)
	require.NotNil(t, cmd.Change.PrimaryColor)
	assert.Equal(t, model.White, *cmd.Change.PrimaryColor)
	assert.Nil(t, cmd.Change.Text)
	assert.Nil(t, cmd.Change.Order)

	branch := &model.Drawable{ID: "BranchLine-a-b", Kind: model.KindLine, Line: &model.Line{Branch: &model.BranchRef{}}}
	_, ok = alice.bridge.OnLocalCreate(SurfaceRef{ID: "s"}, branch)
	assert.False(t, ok)
}

func TestHubRelaysToOtherPeers(t *testing.T) {
	logger := log.NewDiscardLogger()
	hubGot := make(chan Command, 4)
	hub := NewHub(func(c Command) { hubGot <- c }, logger)
	srv := httptest.NewServer(hub)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	aGot := make(chan Command, 4)
	bGot := make(chan Command, 4)
	a, err := Dial(ctx, url, func(c Command) { aGot <- c }, logger)
	require.NoError(t, err)
	b, err := Dial(ctx, url, func(c Command) { bGot <- c }, logger)
	require.NoError(t, err)
	go a.Run(ctx)
	go b.Run(ctx)
	require.Eventually(t, func() bool { return hub.Peers() == 2 }, 2*time.Second, 10*time.Millisecond)

	p := 1
	cmd := Command{ID: "m1", Origin: "alice", Verb: SwitchPage, Surface: SurfaceRef{ID: "board"}, Change: &Change{Page: &p}}
	require.NoError(t, a.Send(cmd))

	select {
	case got := <-bGot:
		assert.Equal(t, "m1", got.ID)
		assert.Equal(t, 1, *got.Change.Page)
	case <-time.After(2 * time.Second):
		t.Fatal("peer b did not receive the command")
	}
	select {
	case got := <-hubGot:
		assert.Equal(t, "m1", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("hub handler did not receive the command")
	}
	select {
	case <-aGot:
		t.Fatal("sender received its own command")
	case <-time.After(100 * time.Millisecond):
	}

	cmd.ID = "m2"
	require.NoError(t, hub.Broadcast(cmd))
	for _, ch := range []chan Command{aGot, bGot} {
		select {
		case got := <-ch:
			assert.Equal(t, "m2", got.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("broadcast not delivered")
		}
	}
}
