// Package codec converts surfaces to and from their persisted configuration
// documents.
package codec

import (
	"encoding/xml"
	"fmt"
	"sort"

	"inkboard/src/pkg/geometry"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/model"
)

// Version of the document layout written by this package.
const Version = 1

// Document is the root of a saved file. It can hold several surfaces.
type Document struct {
	XMLName  xml.Name        `json:"-" yaml:"-" xml:"inkboard"`
	Version  int             `json:"version" xml:"version,attr" yaml:"version"`
	Surfaces []SurfaceConfig `json:"surfaces" xml:"surface" yaml:"surfaces"`
}

// SurfaceConfig is the persisted form of a surface.
type SurfaceConfig struct {
	ID          string          `json:"id" xml:"id,attr" yaml:"id"`
	ParentID    string          `json:"parent_id,omitempty" xml:"parent_id,attr,omitempty" yaml:"parent_id,omitempty"`
	Description string          `json:"description,omitempty" xml:"description,omitempty" yaml:"description,omitempty"`
	Transform   model.Transform `json:"transform" xml:"transform" yaml:"transform"`
	Color       model.Color     `json:"color" xml:"color" yaml:"color"`
	Lighting    bool            `json:"lighting" xml:"lighting,attr" yaml:"lighting"`
	Visible     bool            `json:"visible" xml:"visible,attr" yaml:"visible"`
	Order       int             `json:"order" xml:"order,attr" yaml:"order"`
	CurrentPage int             `json:"current_page" xml:"current_page,attr" yaml:"current_page"`
	MaxPageSize int             `json:"max_page_size" xml:"max_page_size,attr" yaml:"max_page_size"`
	Objects     []ObjectConfig  `json:"objects" xml:"object" yaml:"objects"`
}

// ObjectConfig is the persisted form of a drawable.
type ObjectConfig struct {
	ID        string             `json:"id" xml:"id,attr" yaml:"id"`
	Kind      model.DrawableKind `json:"kind" xml:"kind,attr" yaml:"kind"`
	Order     int                `json:"order" xml:"order,attr" yaml:"order"`
	Page      int                `json:"page" xml:"page,attr" yaml:"page"`
	Transform model.Transform    `json:"transform" xml:"transform" yaml:"transform"`

	Line  *model.Line        `json:"line,omitempty" xml:"line,omitempty" yaml:"line,omitempty"`
	Text  *model.Text        `json:"text,omitempty" xml:"text,omitempty" yaml:"text,omitempty"`
	Image *model.Image       `json:"image,omitempty" xml:"image,omitempty" yaml:"image,omitempty"`
	Node  *model.MindMapNode `json:"node,omitempty" xml:"node,omitempty" yaml:"node,omitempty"`
}

// Attacher rebuilds the derived state of a mind-map node inserted directly.
type Attacher interface {
	Attach(s *model.Surface, id string) error
}

// NewDocument wraps surfaces into a document.
func NewDocument(surfaces ...*model.Surface) *Document {
	doc := &Document{Version: Version}
	for _, s := range surfaces {
		doc.Surfaces = append(doc.Surfaces, FromSurface(s))
	}
	return doc
}

// FromSurface captures the live objects of s, sorted by page and order.
func FromSurface(s *model.Surface) SurfaceConfig {
	cfg := SurfaceConfig{
		ID:          s.ID,
		ParentID:    s.ParentID,
		Description: s.Description,
		Transform:   s.Transform,
		Color:       s.Color,
		Lighting:    s.Lighting,
		Visible:     s.Visible,
		Order:       s.Order,
		CurrentPage: s.CurrentPage,
		MaxPageSize: s.MaxPageSize,
	}
	var objs []*model.Drawable
	for _, d := range s.Objects {
		if d.State != model.StateDestroyed {
			objs = append(objs, d)
		}
	}
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].Page != objs[j].Page {
			return objs[i].Page < objs[j].Page
		}
		if objs[i].Order != objs[j].Order {
			return objs[i].Order < objs[j].Order
		}
		return objs[i].ID < objs[j].ID
	})
	for _, d := range objs {
		// the shallow fallback is enough for a document that is encoded right away
		c, _ := d.Clone()
		cfg.Objects = append(cfg.Objects, ObjectConfig{
			ID:        c.ID,
			Kind:      c.Kind,
			Order:     c.Order,
			Page:      c.Page,
			Transform: c.Transform,
			Line:      c.Line,
			Text:      c.Text,
			Image:     c.Image,
			Node:      c.Node,
		})
	}
	return cfg
}

// Drawable turns an object record into a drawable of surface s. The state is
// left Unborn.
func (o ObjectConfig) Drawable(surfaceID string) (*model.Drawable, error) {
	d := &model.Drawable{
		ID:        o.ID,
		SurfaceID: surfaceID,
		Kind:      o.Kind,
		Order:     o.Order,
		Page:      o.Page,
		Transform: o.Transform,
		Line:      o.Line,
		Text:      o.Text,
		Image:     o.Image,
		Node:      o.Node,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Order < 0 || d.Page < 0 {
		return nil, fmt.Errorf("drawable %s: negative order or page", d.ID)
	}
	if d.Line != nil {
		geometry.Bake(d.Line)
	}
	if d.Node != nil {
		geometry.Bake(&d.Node.Border)
	}
	return d.Clone()
}

// Restore rebuilds a surface from cfg. Layer counters are raised past every
// restored order, colliders are baked again, and mind-map nodes are attached
// parents first when nodes is not nil.
func Restore(cfg SurfaceConfig, alloc *layer.Allocator, nodes Attacher) (*model.Surface, error) {
	if cfg.ID == "" {
		return nil, model.NewValidationError("restore surface", "surface has no id")
	}
	s := model.NewSurface(cfg.ID, cfg.ParentID)
	s.Description = cfg.Description
	s.Transform = cfg.Transform
	s.Color = cfg.Color
	s.Lighting = cfg.Lighting
	s.Visible = cfg.Visible
	s.Order = cfg.Order
	s.CurrentPage = cfg.CurrentPage
	if cfg.MaxPageSize > s.MaxPageSize {
		s.MaxPageSize = cfg.MaxPageSize
	}
	if s.CurrentPage+1 > s.MaxPageSize {
		s.MaxPageSize = s.CurrentPage + 1
	}

	var nodeList []*model.Drawable
	for _, o := range cfg.Objects {
		d, err := o.Drawable(s.ID)
		if err != nil {
			return nil, fmt.Errorf("restore surface %s: %w", s.ID, err)
		}
		if _, dup := s.Objects[d.ID]; dup {
			return nil, fmt.Errorf("restore surface %s: duplicate object %s", s.ID, d.ID)
		}
		d.State = model.StateHidden
		if d.Page == s.CurrentPage {
			d.State = model.StateActive
		}
		if d.Page+1 > s.MaxPageSize {
			s.MaxPageSize = d.Page + 1
		}
		if !d.IsBranchLine() {
			alloc.Observe(s, d.Page, d.Order)
		}
		if d.Kind == model.KindMindMapNode {
			nodeList = append(nodeList, d)
		}
		s.Objects[d.ID] = d
	}

	if nodes != nil {
		sort.SliceStable(nodeList, func(i, j int) bool {
			return nodeList[i].Node.Layer < nodeList[j].Node.Layer
		})
		for _, d := range nodeList {
			if err := nodes.Attach(s, d.ID); err != nil {
				return nil, fmt.Errorf("restore surface %s: %w", s.ID, err)
			}
		}
	}
	return s, nil
}
