package replication

import (
	"context"
	"fmt"

	"inkboard/src/pkg/codec"
	"inkboard/src/pkg/event"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/mindmap"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/page"
	"inkboard/src/pkg/surface"
)

var fieldVerbs = map[string]Verb{
	event.FieldPoints:    DrawLinePoints,
	event.FieldColor:     ChangeColor,
	event.FieldThickness: ChangeThickness,
	event.FieldOrder:     ChangeOrder,
	event.FieldText:      ChangeText,
	event.FieldParent:    ChangeParent,
	event.FieldNodeKind:  ChangeNodeKind,
	event.FieldLineKind:  ChangeLineKind,
	event.FieldTransform: ChangeTransform,
	event.FieldPage:      ChangePage,
}

var verbFields = func() map[Verb]string {
	m := make(map[Verb]string, len(fieldVerbs))
	for f, v := range fieldVerbs {
		m[v] = f
	}
	return m
}()

// Sender delivers a command to the other participants.
type Sender func(Command) error

// Bridge connects the local event stream to the network and applies remote
// commands to the local surfaces.
type Bridge struct {
	origin    string
	registry  *surface.Registry
	allocator *layer.Allocator
	tree      *mindmap.Tree
	pages     *page.Manager
	measurer  mindmap.TextMeasurer
	events    *event.EventManager
	send      Sender
	logger    *log.Logger
}

// NewBridge creates a Bridge for the participant origin.
func NewBridge(origin string, registry *surface.Registry, allocator *layer.Allocator, tree *mindmap.Tree, pages *page.Manager,
	measurer mindmap.TextMeasurer, events *event.EventManager, logger *log.Logger) (*Bridge, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	switch {
	case registry == nil:
		logger.Error(ctx, "Surface registry not initialized", nil)
		return nil, fmt.Errorf("surface registry not initialized")
	case allocator == nil, tree == nil, pages == nil, measurer == nil:
		logger.Error(ctx, "Replication dependencies not initialized", nil)
		return nil, fmt.Errorf("replication dependencies not initialized")
	case events == nil:
		logger.Error(ctx, "EventManager not initialized", nil)
		return nil, fmt.Errorf("eventManager not initialized")
	}
	b := &Bridge{
		origin:    origin,
		registry:  registry,
		allocator: allocator,
		tree:      tree,
		pages:     pages,
		measurer:  measurer,
		events:    events,
		logger:    logger,
	}
	events.Subscribe(event.DrawableCreated, b.handleCreated)
	events.Subscribe(event.DrawableUpdated, b.handleUpdated)
	events.Subscribe(event.DrawableDeleted, b.handleDeleted)
	events.Subscribe(event.PageSwitched, b.handlePage(SwitchPage))
	events.Subscribe(event.PageCleared, b.handlePage(ClearPage))
	return b, nil
}

// SetSender sets where local commands go. A nil sender keeps them local.
func (b *Bridge) SetSender(send Sender) {
	b.send = send
}

// Origin returns the participant name stamped on local commands.
func (b *Bridge) Origin() string {
	return b.origin
}

// OnLocalCreate builds the command announcing a new object. Branch lines are
// derived by every participant and are not sent.
func (b *Bridge) OnLocalCreate(ref SurfaceRef, obj *model.Drawable) (Command, bool) {
	if obj.IsBranchLine() {
		return Command{}, false
	}
	var verb Verb
	switch obj.Kind {
	case model.KindLine:
		verb = CreateLine
	case model.KindText:
		verb = AddText
	case model.KindImage:
		verb = AddImage
	case model.KindMindMapNode:
		verb = AddMindMapNode
	default:
		return Command{}, false
	}
	cmd := newCommand(b.origin, verb, ref, obj.ID)
	cfg := codec.ObjectConfig{
		ID:        obj.ID,
		Kind:      obj.Kind,
		Order:     obj.Order,
		Page:      obj.Page,
		Transform: obj.Transform,
		Line:      obj.Line,
		Text:      obj.Text,
		Image:     obj.Image,
		Node:      obj.Node,
	}
	cmd.Object = &cfg
	return cmd, true
}

// OnLocalUpdate builds the command carrying the changed fields of obj. The
// verb follows the first changed field.
func (b *Bridge) OnLocalUpdate(ref SurfaceRef, obj *model.Drawable, changed []string) (Command, bool) {
	if obj.IsBranchLine() || len(changed) == 0 {
		return Command{}, false
	}
	verb, ok := fieldVerbs[changed[0]]
	if !ok {
		return Command{}, false
	}
	cmd := newCommand(b.origin, verb, ref, obj.ID)
	cmd.Change = b.changeOf(obj, changed)
	return cmd, true
}

// OnLocalDelete builds the command removing obj.
func (b *Bridge) OnLocalDelete(ref SurfaceRef, obj *model.Drawable) (Command, bool) {
	if obj.IsBranchLine() {
		return Command{}, false
	}
	return newCommand(b.origin, Delete, ref, obj.ID), true
}

// OnLocalPage builds a switch-page or clear-page command.
func (b *Bridge) OnLocalPage(verb Verb, ref SurfaceRef, pageIdx int) Command {
	cmd := newCommand(b.origin, verb, ref, "")
	cmd.Change = &Change{Page: &pageIdx}
	return cmd
}

// changeOf copies the fields named in changed out of obj. Positions travel
// without the layer offset so that the receiver can apply its own.
func (b *Bridge) changeOf(obj *model.Drawable, changed []string) *Change {
	ch := &Change{}
	planar := func() *model.Transform {
		t := obj.Transform
		t.Position = b.allocator.Planar(t.Position, model.Forward, obj.Order)
		return &t
	}
	for _, f := range changed {
		switch f {
		case event.FieldPoints:
			if obj.Line != nil {
				ch.Points = obj.Line.Points
			}
			ch.Transform = planar()
		case event.FieldColor:
			switch {
			case obj.Line != nil:
				ch.PrimaryColor, ch.SecondaryColor = &obj.Line.PrimaryColor, &obj.Line.SecondaryColor
				ch.ColorKind = &obj.Line.ColorKind
			case obj.Text != nil:
				ch.PrimaryColor = &obj.Text.FontColor
			case obj.Image != nil:
				ch.PrimaryColor = &obj.Image.Tint
			case obj.Node != nil:
				ch.PrimaryColor = &obj.Node.Border.PrimaryColor
			}
		case event.FieldThickness:
			if l := lineOf(obj); l != nil {
				ch.Thickness = &l.Thickness
			}
		case event.FieldOrder:
			ch.Order = &obj.Order
		case event.FieldText:
			if obj.Text != nil {
				ch.Text = &obj.Text.Content
			} else if obj.Node != nil {
				ch.Text = &obj.Node.Label.Content
			}
		case event.FieldParent:
			if obj.Node != nil {
				ch.ParentID = &obj.Node.ParentID
			}
		case event.FieldNodeKind:
			if obj.Node != nil {
				ch.NodeKind = &obj.Node.NodeKind
			}
		case event.FieldLineKind:
			if l := lineOf(obj); l != nil {
				ch.LineKind, ch.Tiling = &l.LineKind, &l.Tiling
			}
		case event.FieldTransform:
			ch.Transform = planar()
		case event.FieldPage:
			ch.Page = &obj.Page
			ch.Order = &obj.Order
		}
	}
	return ch
}

func lineOf(d *model.Drawable) *model.Line {
	if d.Line != nil {
		return d.Line
	}
	if d.Node != nil {
		return &d.Node.Border
	}
	return nil
}

func refOf(surfaceID, parentID string) SurfaceRef {
	return SurfaceRef{ID: surfaceID, ParentID: parentID}
}

func (b *Bridge) handleCreated(e event.Event) {
	de, ok := e.Data.(event.DrawableEvent)
	if !ok {
		return
	}
	if cmd, ok := b.OnLocalCreate(refOf(de.SurfaceID, de.SurfaceParentID), de.Object); ok {
		b.publish(cmd)
	}
}

func (b *Bridge) handleUpdated(e event.Event) {
	de, ok := e.Data.(event.DrawableEvent)
	if !ok {
		return
	}
	if cmd, ok := b.OnLocalUpdate(refOf(de.SurfaceID, de.SurfaceParentID), de.Object, de.Changed); ok {
		b.publish(cmd)
	}
}

func (b *Bridge) handleDeleted(e event.Event) {
	de, ok := e.Data.(event.DrawableEvent)
	if !ok {
		return
	}
	if cmd, ok := b.OnLocalDelete(refOf(de.SurfaceID, de.SurfaceParentID), de.Object); ok {
		b.publish(cmd)
	}
}

func (b *Bridge) handlePage(verb Verb) event.EventHandler {
	return func(e event.Event) {
		pe, ok := e.Data.(event.PageEvent)
		if !ok {
			return
		}
		b.publish(b.OnLocalPage(verb, refOf(pe.SurfaceID, pe.SurfaceParentID), pe.Page))
	}
}

// publish hands cmd to the sender. Failures are logged; the local session
// goes on.
func (b *Bridge) publish(cmd Command) {
	if b.send == nil {
		return
	}
	if err := b.send(cmd); err != nil {
		b.logger.Error(context.Background(), "Failed to send replication command", log.Fields{"error": err, "verb": cmd.Verb, "objectID": cmd.ObjectID})
		return
	}
	b.logger.Debug(context.Background(), "Replication command sent", log.Fields{"verb": cmd.Verb, "objectID": cmd.ObjectID})
}
