// Package data provides data management functionality for the inkboard application.
// This file contains operations on the drawables of a surface.
package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"inkboard/src/pkg/anim"
	"inkboard/src/pkg/event"
	"inkboard/src/pkg/geometry"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/mindmap"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/page"
	"inkboard/src/pkg/shape"
	"inkboard/src/pkg/storage"
	"inkboard/src/pkg/surface"
)

// MinPointStep is the smallest distance between two recorded line points.
const MinPointStep float32 = 0.001

// DrawableOperations defines the interface for drawable-related operations
type DrawableOperations interface {
	BeginLine(key string, style model.Line, first model.Vec3)
	ContinueLine(key string, p model.Vec3) bool
	FinishLine(key string, s *model.Surface, loop bool) (*model.Drawable, error)
	CancelLine(key string)
	AddLine(s *model.Surface, points []model.Vec3, style model.Line, loop bool) (*model.Drawable, error)
	AddShape(s *model.Surface, kind shape.Kind, center model.Vec3, style model.Line, params ...float32) (*model.Drawable, error)
	AddText(s *model.Surface, pos model.Vec3, style model.Text) (*model.Drawable, error)
	AddImage(s *model.Surface, sourcePath string, pos model.Vec3, height float32) (*model.Drawable, error)
	AddNode(s *model.Surface, spec mindmap.NodeSpec) (*model.Drawable, error)
	SetColor(s *model.Surface, id string, c model.Color) error
	SetGradient(s *model.Surface, id string, kind model.ColorKind, secondary model.Color) error
	SetThickness(s *model.Surface, id string, thickness float32) error
	SetLineKind(s *model.Surface, id string, kind model.LineKind, tiling float32) error
	SetText(s *model.Surface, id, text string) error
	Move(s *model.Surface, id string, pos model.Vec3) error
	ChangeOrder(s *model.Surface, id string, order int) error
	Delete(s *model.Surface, id string) ([]string, error)
	Split(s *model.Surface, id string, hits []int, removeMatched bool) ([]*model.Drawable, error)
	SplitAt(s *model.Surface, id string, target model.Vec3, radius float32, removeMatched bool) ([]*model.Drawable, error)
}

// DrawableManager creates and edits drawables. Every change is published on
// the event manager so that replication and other observers follow.
type DrawableManager struct {
	allocator *layer.Allocator
	tree      *mindmap.Tree
	pages     *page.Manager
	measurer  mindmap.TextMeasurer
	blobs     storage.BlobStore
	scheduler *anim.Scheduler
	events    *event.EventManager
	logger    *log.Logger

	mu       sync.Mutex
	builders map[string]*geometry.Builder
}

// NewDrawableManager creates a DrawableManager. blobs may be nil, which
// disables images.
func NewDrawableManager(allocator *layer.Allocator, tree *mindmap.Tree, pages *page.Manager, measurer mindmap.TextMeasurer,
	blobs storage.BlobStore, scheduler *anim.Scheduler, eventManager *event.EventManager, logger *log.Logger) (*DrawableManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	logger.Info(ctx, "Creating new DrawableManager", nil)

	if allocator == nil || tree == nil || pages == nil {
		logger.Error(ctx, "Surface engine not initialized", nil)
		return nil, fmt.Errorf("surface engine not initialized")
	}
	if measurer == nil {
		logger.Error(ctx, "Text measurer not initialized", nil)
		return nil, fmt.Errorf("text measurer not initialized")
	}
	if scheduler == nil {
		logger.Error(ctx, "Scheduler not initialized", nil)
		return nil, fmt.Errorf("scheduler not initialized")
	}
	if eventManager == nil {
		logger.Error(ctx, "EventManager not initialized", nil)
		return nil, fmt.Errorf("eventManager not initialized")
	}
	if blobs == nil {
		logger.Warn(ctx, "Blob store not available, images disabled", nil)
	}

	dm := &DrawableManager{
		allocator: allocator,
		tree:      tree,
		pages:     pages,
		measurer:  measurer,
		blobs:     blobs,
		scheduler: scheduler,
		events:    eventManager,
		logger:    logger,
		builders:  make(map[string]*geometry.Builder),
	}
	logger.Info(ctx, "DrawableManager created successfully", nil)
	return dm, nil
}

// BeginLine starts drawing a line for key, usually a session id. A line
// already in progress for key is dropped.
func (dm *DrawableManager) BeginLine(key string, style model.Line, first model.Vec3) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	b, ok := dm.builders[key]
	if !ok {
		b = geometry.NewBuilder(MinPointStep)
		dm.builders[key] = b
	}
	b.BeginLine(style, first)
}

// ContinueLine adds a point to the line of key.
func (dm *DrawableManager) ContinueLine(key string, p model.Vec3) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	b, ok := dm.builders[key]
	if !ok {
		return false
	}
	return b.ContinueLine(p)
}

// CancelLine drops the line of key.
func (dm *DrawableManager) CancelLine(key string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if b, ok := dm.builders[key]; ok {
		b.Cancel()
	}
	delete(dm.builders, key)
}

// FinishLine turns the line of key into a drawable on the current page of s.
func (dm *DrawableManager) FinishLine(key string, s *model.Surface, loop bool) (*model.Drawable, error) {
	dm.mu.Lock()
	b, ok := dm.builders[key]
	delete(dm.builders, key)
	dm.mu.Unlock()
	if !ok || !b.Active() {
		return nil, model.NewValidationError("finish line", "no line in progress")
	}
	line, err := b.FinishLine(loop)
	if line == nil {
		return nil, err
	}
	return dm.placeLine(s, line, model.IdentityTransform(), err)
}

// AddLine creates a line through points with the style of style.
func (dm *DrawableManager) AddLine(s *model.Surface, points []model.Vec3, style model.Line, loop bool) (*model.Drawable, error) {
	line, err := geometry.FinishLine(points, style, loop)
	if line == nil {
		return nil, err
	}
	return dm.placeLine(s, line, model.IdentityTransform(), err)
}

// AddShape creates a closed line shaped as kind around center.
func (dm *DrawableManager) AddShape(s *model.Surface, kind shape.Kind, center model.Vec3, style model.Line, params ...float32) (*model.Drawable, error) {
	pts, err := shape.Build(kind, center, params...)
	if err != nil {
		return nil, model.NewValidationError("add shape", "%v", err)
	}
	return dm.AddLine(s, pts, style, true)
}

// placeLine stacks line on top of the current page. warn is passed through
// to the caller.
func (dm *DrawableManager) placeLine(s *model.Surface, line *model.Line, t model.Transform, warn error) (*model.Drawable, error) {
	d, err := dm.placeLineOnPage(s, line, t, s.CurrentPage)
	if err != nil {
		return nil, err
	}
	return d, warn
}

// add stacks d on top of its page and publishes it.
func (dm *DrawableManager) add(s *model.Surface, d *model.Drawable) error {
	dm.allocator.Place(d, dm.allocator.Allocate(s, d.Page), model.Forward)
	if err := surface.Add(s, d); err != nil {
		dm.logger.Warn(context.Background(), "Drawable rejected", log.Fields{"error": err, "objectID": d.ID})
		return err
	}
	event.Drawable(dm.events, event.DrawableCreated, s, d)
	dm.logger.Info(context.Background(), "Drawable added", log.Fields{"surfaceID": s.ID, "objectID": d.ID, "kind": d.Kind, "order": d.Order, "page": d.Page})
	return nil
}

// AddText places a text at pos. The text is measured on creation.
func (dm *DrawableManager) AddText(s *model.Surface, pos model.Vec3, style model.Text) (*model.Drawable, error) {
	if strings.TrimSpace(style.Content) == "" {
		return nil, model.NewValidationError("add text", "text is empty")
	}
	if style.FontSize <= 0 {
		return nil, model.NewValidationError("add text", "font size must be positive")
	}
	txt := style
	txt.Width, txt.Height = dm.measurer.Measure(txt.Content, txt.FontSize, txt.FontStyles)
	d := &model.Drawable{
		ID:        model.NewID(model.PrefixText),
		Kind:      model.KindText,
		Page:      s.CurrentPage,
		Transform: model.TransformAt(model.V3(pos.X, pos.Y, 0)),
		Text:      &txt,
	}
	if err := dm.add(s, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddImage stores the picture at sourcePath in the blob store and places it
// at pos, height units tall with its own aspect ratio.
func (dm *DrawableManager) AddImage(s *model.Surface, sourcePath string, pos model.Vec3, height float32) (*model.Drawable, error) {
	ctx := context.Background()
	if dm.blobs == nil {
		dm.logger.Warn(ctx, "Image requested without blob store", log.Fields{"path": sourcePath})
		return nil, fmt.Errorf("add image: %w", model.ErrFeatureDisabled)
	}
	if height <= 0 {
		return nil, model.NewValidationError("add image", "height must be positive")
	}
	info, err := dm.blobs.BlobPut(sourcePath)
	if err != nil {
		dm.logger.Error(ctx, "Failed to store image", log.Fields{"error": err, "path": sourcePath})
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	data, _, err := dm.blobs.BlobGet(info.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Height == 0 {
		dm.logger.Warn(ctx, "Unreadable image size, using a square", log.Fields{"error": err, "name": info.Name})
		cfg.Width, cfg.Height = 1, 1
	}

	d := &model.Drawable{
		ID:        model.NewID(model.PrefixImage),
		Kind:      model.KindImage,
		Page:      s.CurrentPage,
		Transform: model.TransformAt(model.V3(pos.X, pos.Y, 0)),
		Image: &model.Image{
			FileName:   info.Name,
			SourcePath: sourcePath,
			Hash:       info.Hash,
			Tint:       model.White,
			Width:      height * float32(cfg.Width) / float32(cfg.Height),
			Height:     height,
		},
	}
	if err := dm.add(s, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddNode creates a mind-map node.
func (dm *DrawableManager) AddNode(s *model.Surface, spec mindmap.NodeSpec) (*model.Drawable, error) {
	return dm.tree.CreateNode(s, spec)
}

// object resolves id for op. Branch lines are only restyled, never edited.
func (dm *DrawableManager) object(s *model.Surface, op, id string) (*model.Drawable, error) {
	d, err := surface.Get(s, id)
	if err != nil {
		return nil, err
	}
	if d.IsBranchLine() {
		return nil, model.NewValidationError(op, "branch line %s follows its nodes", id)
	}
	return d, nil
}

func (dm *DrawableManager) updated(s *model.Surface, d *model.Drawable, changed ...string) {
	event.Drawable(dm.events, event.DrawableUpdated, s, d, changed...)
	dm.logger.Debug(context.Background(), "Drawable updated", log.Fields{"objectID": d.ID, "changed": changed})
}

// lineOf returns the line of a line drawable or the border of a node.
func lineOf(d *model.Drawable) *model.Line {
	if d.Line != nil {
		return d.Line
	}
	if d.Node != nil {
		return &d.Node.Border
	}
	return nil
}

// SetColor sets the main color: line color, font color, image tint or node
// border color.
func (dm *DrawableManager) SetColor(s *model.Surface, id string, c model.Color) error {
	d, err := surface.Get(s, id)
	if err != nil {
		return err
	}
	switch {
	case d.Line != nil:
		d.Line.PrimaryColor = c
	case d.Text != nil:
		d.Text.FontColor = c
	case d.Image != nil:
		d.Image.Tint = c
	case d.Node != nil:
		d.Node.Border.PrimaryColor = c
	}
	dm.updated(s, d, event.FieldColor)
	return nil
}

// SetGradient sets the color kind and second color of a line.
func (dm *DrawableManager) SetGradient(s *model.Surface, id string, kind model.ColorKind, secondary model.Color) error {
	d, err := surface.Get(s, id)
	if err != nil {
		return err
	}
	if d.Line == nil {
		return model.NewValidationError("set color", "%s is not a line", id)
	}
	d.Line.ColorKind = kind
	d.Line.SecondaryColor = secondary
	dm.updated(s, d, event.FieldColor)
	return nil
}

// SetThickness sets the thickness of a line or node border.
func (dm *DrawableManager) SetThickness(s *model.Surface, id string, thickness float32) error {
	if thickness <= 0 {
		return model.NewValidationError("set thickness", "thickness must be positive")
	}
	d, err := surface.Get(s, id)
	if err != nil {
		return err
	}
	l := lineOf(d)
	if l == nil {
		return model.NewValidationError("set thickness", "%s has no line", id)
	}
	l.Thickness = thickness
	dm.updated(s, d, event.FieldThickness)
	return nil
}

// SetLineKind sets the dash pattern of a line or node border.
func (dm *DrawableManager) SetLineKind(s *model.Surface, id string, kind model.LineKind, tiling float32) error {
	if tiling <= 0 {
		tiling = model.DefaultTiling
	}
	d, err := surface.Get(s, id)
	if err != nil {
		return err
	}
	l := lineOf(d)
	if l == nil {
		return model.NewValidationError("set line kind", "%s has no line", id)
	}
	l.LineKind = kind
	l.Tiling = tiling
	dm.updated(s, d, event.FieldLineKind)
	return nil
}

// SetText replaces the content of a text or the label of a node.
func (dm *DrawableManager) SetText(s *model.Surface, id, text string) error {
	d, err := dm.object(s, "set text", id)
	if err != nil {
		return err
	}
	switch {
	case d.Node != nil:
		return dm.tree.SetText(s, id, text)
	case d.Text != nil:
		if strings.TrimSpace(text) == "" {
			return model.NewValidationError("set text", "text is empty")
		}
		d.Text.Content = text
		d.Text.Width, d.Text.Height = dm.measurer.Measure(text, d.Text.FontSize, d.Text.FontStyles)
		dm.updated(s, d, event.FieldText)
		return nil
	default:
		return model.NewValidationError("set text", "%s has no text", id)
	}
}

// Move places an object at the planar position pos.
func (dm *DrawableManager) Move(s *model.Surface, id string, pos model.Vec3) error {
	d, err := dm.object(s, "move", id)
	if err != nil {
		return err
	}
	if d.Node != nil {
		return dm.tree.MoveNode(s, id, pos)
	}
	dm.allocator.MoveTo(d, model.V3(pos.X, pos.Y, 0), model.Forward)
	dm.updated(s, d, event.FieldTransform)
	return nil
}

// Rotate sets the euler angles of an object, in degrees.
func (dm *DrawableManager) Rotate(s *model.Surface, id string, angles model.Vec3) error {
	d, err := dm.object(s, "rotate", id)
	if err != nil {
		return err
	}
	d.Transform.EulerAngles = angles
	dm.updated(s, d, event.FieldTransform)
	return nil
}

// Paste places a copy of src on s under a new id, stacked on top of pageIdx.
// The copy lands at the planar position pos, or where src was when pos is
// nil. A node is pasted as a root node of the current page; its subtree is
// not copied.
func (dm *DrawableManager) Paste(s *model.Surface, src *model.Drawable, pageIdx int, pos *model.Vec3) (*model.Drawable, error) {
	if src == nil {
		return nil, model.NewValidationError("paste", "clipboard is empty")
	}
	if src.IsBranchLine() {
		return nil, model.NewValidationError("paste", "branch line %s follows its nodes", src.ID)
	}
	if pageIdx < 0 {
		return nil, model.NewValidationError("paste", "page %d is negative", pageIdx)
	}
	at := dm.Planar(src)
	if pos != nil {
		at = model.V3(pos.X, pos.Y, 0)
	}

	if src.Node != nil {
		if pageIdx != s.CurrentPage {
			return nil, model.NewValidationError("paste", "mind-map nodes are pasted on the current page")
		}
		return dm.tree.CreateNode(s, mindmap.NodeSpec{Kind: src.Node.NodeKind, Text: src.Node.Label.Content, Position: at})
	}

	d, err := src.Clone()
	if err != nil {
		return nil, fmt.Errorf("paste %s: %w", src.ID, err)
	}
	switch d.Kind {
	case model.KindLine:
		d.ID = model.NewID(model.PrefixLine)
	case model.KindText:
		d.ID = model.NewID(model.PrefixText)
	case model.KindImage:
		d.ID = model.NewID(model.PrefixImage)
	default:
		return nil, model.NewValidationError("paste", "cannot paste a %s", d.Kind)
	}
	d.SurfaceID = s.ID
	d.Page = pageIdx
	d.Order = 0
	d.Transform.Position = at
	if err := dm.add(s, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Planar returns the position of d without its layer offset.
func (dm *DrawableManager) Planar(d *model.Drawable) model.Vec3 {
	return dm.allocator.Planar(d.Transform.Position, model.Forward, d.Order)
}

// ChangeOrder moves an object to another layer order on its page.
func (dm *DrawableManager) ChangeOrder(s *model.Surface, id string, order int) error {
	return dm.tree.ChangeOrder(s, id, order)
}

// MoveToPage moves a line, text or image to another page.
func (dm *DrawableManager) MoveToPage(s *model.Surface, id string, pageIdx int) error {
	return dm.pages.MoveToPage(s, id, pageIdx)
}

// Delete removes an object. Deleting a node removes its subtree. It returns
// the ids of every removed object.
func (dm *DrawableManager) Delete(s *model.Surface, id string) ([]string, error) {
	d, err := dm.object(s, "delete", id)
	if err != nil {
		return nil, err
	}
	dm.scheduler.Cancel(id)
	if d.Node != nil {
		return dm.tree.RemoveNode(s, id)
	}
	event.Drawable(dm.events, event.DrawableDeleted, s, d)
	if _, err := surface.Delete(s, id); err != nil {
		return nil, err
	}
	dm.logger.Info(context.Background(), "Drawable deleted", log.Fields{"surfaceID": s.ID, "objectID": id})
	return []string{id}, nil
}

// Split cuts a line at the point indices hits. The original line is deleted
// and every run of two or more points becomes a new line on top of the page.
func (dm *DrawableManager) Split(s *model.Surface, id string, hits []int, removeMatched bool) ([]*model.Drawable, error) {
	d, err := dm.object(s, "split", id)
	if err != nil {
		return nil, err
	}
	if d.Line == nil {
		return nil, model.NewValidationError("split", "%s is not a line", id)
	}
	lines, warn := geometry.Split(d.Line, hits, removeMatched)
	if warn != nil && !model.IsWarning(warn) {
		return nil, warn
	}

	base := d.Transform
	base.Position = dm.Planar(d)
	if _, err := dm.Delete(s, id); err != nil {
		return nil, err
	}
	var out []*model.Drawable
	for _, l := range lines {
		nd, err := dm.placeLineOnPage(s, l, base, d.Page)
		if err != nil {
			return out, err
		}
		out = append(out, nd)
	}
	dm.logger.Info(context.Background(), "Line split", log.Fields{"objectID": id, "parts": len(out)})
	return out, warn
}

// placeLineOnPage moves the origin of l to its pivot and stacks it on top of
// pageIdx.
func (dm *DrawableManager) placeLineOnPage(s *model.Surface, l *model.Line, t model.Transform, pageIdx int) (*model.Drawable, error) {
	t, l.Points = geometry.RecomputePivot(t, l.Points)
	geometry.Bake(l)
	nd := &model.Drawable{
		ID:        model.NewID(model.PrefixLine),
		Kind:      model.KindLine,
		Page:      pageIdx,
		Transform: t,
		Line:      l,
	}
	if err := dm.add(s, nd); err != nil {
		return nil, err
	}
	return nd, nil
}

// SplitAt splits a line at every point within radius of target, given in
// surface space.
func (dm *DrawableManager) SplitAt(s *model.Surface, id string, target model.Vec3, radius float32, removeMatched bool) ([]*model.Drawable, error) {
	d, err := dm.object(s, "split", id)
	if err != nil {
		return nil, err
	}
	if d.Line == nil {
		return nil, model.NewValidationError("split", "%s is not a line", id)
	}
	t := d.Transform
	t.Position = dm.Planar(d)
	local := geometry.ToLocal(t, model.V3(target.X, target.Y, 0))
	hits := geometry.NearestIndices(d.Line.Points, local, radius)
	if len(hits) == 0 {
		return nil, model.NewValidationError("split", "no point of %s within %g of %s", id, radius, target)
	}
	return dm.Split(s, id, hits, removeMatched)
}

// Glide moves an object to the planar position pos over duration. Branch
// lines of a node follow on every step.
func (dm *DrawableManager) Glide(s *model.Surface, id string, pos model.Vec3, duration time.Duration) (*anim.Token, error) {
	d, err := dm.object(s, "glide", id)
	if err != nil {
		return nil, err
	}
	to := layer.PhysicalOffset(model.V3(pos.X, pos.Y, 0), model.Forward, dm.allocator.Epsilon(), d.Order)
	return dm.scheduler.Move(d, to, duration, func() {
		dm.updated(s, d, event.FieldTransform)
		if d.Node != nil {
			dm.tree.RedrawBranchLines(s, id)
		}
	}), nil
}

// Resize scales an object to scale over duration.
func (dm *DrawableManager) Resize(s *model.Surface, id string, scale model.Vec3, duration time.Duration) (*anim.Token, error) {
	d, err := dm.object(s, "resize", id)
	if err != nil {
		return nil, err
	}
	if scale.X <= 0 || scale.Y <= 0 {
		return nil, model.NewValidationError("resize", "scale must be positive")
	}
	if scale.Z == 0 {
		scale.Z = 1
	}
	return dm.scheduler.Scale(d, scale, duration, func() {
		dm.updated(s, d, event.FieldTransform)
	}), nil
}

// Fade moves the alpha of the main color of an object to alpha.
func (dm *DrawableManager) Fade(s *model.Surface, id string, alpha float32, duration time.Duration) (*anim.Token, error) {
	d, err := dm.object(s, "fade", id)
	if err != nil {
		return nil, err
	}
	return dm.scheduler.Fade(d, alpha, duration, func() {
		dm.updated(s, d, event.FieldColor)
	}), nil
}

// DeleteAfter removes an object once delay has passed.
func (dm *DrawableManager) DeleteAfter(s *model.Surface, id string, delay time.Duration) (*anim.Token, error) {
	d, err := dm.object(s, "delete", id)
	if err != nil {
		return nil, err
	}
	return dm.scheduler.DeleteAfter(d, delay, func() {
		if _, err := dm.Delete(s, id); err != nil && !errors.Is(err, model.ErrNotFound) {
			dm.logger.Warn(context.Background(), "Delayed delete failed", log.Fields{"error": err, "objectID": id})
		}
	}), nil
}
