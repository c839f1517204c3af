package model

import (
	"strings"

	"github.com/google/uuid"
)

// Id prefixes per object role.
const (
	PrefixLine       = "Line"
	PrefixText       = "Text"
	PrefixImage      = "Image"
	PrefixBranchLine = "BranchLine"
	PrefixSurface    = "Surface"
)

// NewID returns "<prefix>-<12 hex>".
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + hex[:12]
}

// NodePrefix returns the id prefix for a node kind.
func NodePrefix(k NodeKind) string {
	switch k {
	case Theme:
		return "Theme"
	case Subtheme:
		return "Subtheme"
	default:
		return "Leaf"
	}
}

// BranchLineID names the branch line between parent and child.
func BranchLineID(parentID, childID string) string {
	return PrefixBranchLine + "-" + parentID + "-" + childID
}

// BorderID names the border line owned by a node.
func BorderID(nodeID string) string {
	return PrefixLine + "-" + nodeID
}

// LabelID names the label text owned by a node.
func LabelID(nodeID string) string {
	return PrefixText + "-" + nodeID
}
