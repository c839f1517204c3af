// Package replication turns local mutations into wire commands and applies
// commands received from other participants.
package replication

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"inkboard/src/pkg/codec"
	"inkboard/src/pkg/model"
)

// Verb names the mutation a command carries.
type Verb string

const (
	CreateLine      Verb = "create-line"
	DrawLinePoints  Verb = "draw-line-points"
	AddText         Verb = "add-text"
	AddImage        Verb = "add-image"
	AddMindMapNode  Verb = "add-mindmap-node"
	ChangeColor     Verb = "change-color"
	ChangeThickness Verb = "change-thickness"
	ChangeOrder     Verb = "change-order"
	ChangeText      Verb = "change-text"
	ChangeParent    Verb = "change-parent"
	ChangeNodeKind  Verb = "change-node-kind"
	ChangeLineKind  Verb = "change-line-kind"
	ChangeTransform Verb = "change-transform"
	ChangePage      Verb = "change-page"
	SwitchPage      Verb = "switch-page"
	ClearPage       Verb = "clear-page"
	Delete          Verb = "delete"
)

// creates lists the verbs carrying a whole object.
var creates = map[Verb]bool{
	CreateLine:     true,
	AddText:        true,
	AddImage:       true,
	AddMindMapNode: true,
}

// SurfaceRef addresses a surface through the directory.
type SurfaceRef struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
}

// Change holds the fields an update touched. Nil fields are unchanged.
type Change struct {
	Points         []model.Vec3     `json:"points,omitempty"`
	Transform      *model.Transform `json:"transform,omitempty"`
	PrimaryColor   *model.Color     `json:"primary_color,omitempty"`
	SecondaryColor *model.Color     `json:"secondary_color,omitempty"`
	ColorKind      *model.ColorKind `json:"color_kind,omitempty"`
	Thickness      *float32         `json:"thickness,omitempty"`
	Order          *int             `json:"order,omitempty"`
	Text           *string          `json:"text,omitempty"`
	ParentID       *string          `json:"parent_id,omitempty"`
	NodeKind       *model.NodeKind  `json:"node_kind,omitempty"`
	LineKind       *model.LineKind  `json:"line_kind,omitempty"`
	Tiling         *float32         `json:"tiling,omitempty"`
	Page           *int             `json:"page,omitempty"`
}

// Command is one replicated mutation.
type Command struct {
	ID       string              `json:"id"`
	Origin   string              `json:"origin,omitempty"`
	Verb     Verb                `json:"verb"`
	Surface  SurfaceRef          `json:"surface"`
	ObjectID string              `json:"object_id,omitempty"`
	Object   *codec.ObjectConfig `json:"object,omitempty"`
	Change   *Change             `json:"change,omitempty"`
}

func newCommand(origin string, verb Verb, ref SurfaceRef, objectID string) Command {
	return Command{
		ID:       uuid.NewString(),
		Origin:   origin,
		Verb:     verb,
		Surface:  ref,
		ObjectID: objectID,
	}
}

// Validate checks that the command carries what its verb needs.
func (c Command) Validate() error {
	if c.Surface.ID == "" {
		return fmt.Errorf("command %s: missing surface", c.Verb)
	}
	switch {
	case creates[c.Verb]:
		if c.Object == nil || c.Object.ID == "" {
			return fmt.Errorf("command %s: missing object", c.Verb)
		}
	case c.Verb == SwitchPage || c.Verb == ClearPage:
		if c.Change == nil || c.Change.Page == nil {
			return fmt.Errorf("command %s: missing page", c.Verb)
		}
	case c.Verb == Delete:
		if c.ObjectID == "" {
			return fmt.Errorf("command %s: missing object id", c.Verb)
		}
	default:
		if _, ok := verbFields[c.Verb]; !ok {
			return fmt.Errorf("unknown verb: %q", c.Verb)
		}
		if c.ObjectID == "" || c.Change == nil {
			return fmt.Errorf("command %s: missing object id or change", c.Verb)
		}
	}
	return nil
}

// Encode marshals a command for the wire.
func Encode(c Command) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return data, nil
}

// Decode unmarshals and validates a wire command.
func Decode(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("failed to decode command: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}
