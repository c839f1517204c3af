// Package data provides data management functionality for the inkboard application.
// This file contains operations related to surface management.
package data

import (
	"context"
	"errors"
	"fmt"

	"inkboard/src/pkg/codec"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/storage"
	"inkboard/src/pkg/surface"
)

// SurfaceOperations defines the interface for surface-related operations
type SurfaceOperations interface {
	SurfaceAdd(id, parentID, description string) (*model.Surface, error)
	SurfaceGet(id, parentID string) (*model.Surface, error)
	SurfaceList() []model.SurfaceInfo
	SurfaceDelete(id, parentID string) error
	SurfaceSave(id, parentID string) error
	SurfaceLoad(id, parentID string) (*model.Surface, error)
	SurfaceStored() ([]storage.SurfaceRecord, error)
}

// SurfaceManager keeps the live surfaces and their stored snapshots.
type SurfaceManager struct {
	registry  *surface.Registry
	store     storage.SurfaceStore
	allocator *layer.Allocator
	nodes     codec.Attacher
	logger    *log.Logger
}

// NewSurfaceManager creates a SurfaceManager. store may be nil, which
// disables snapshots.
func NewSurfaceManager(registry *surface.Registry, store storage.SurfaceStore, allocator *layer.Allocator, nodes codec.Attacher, logger *log.Logger) (*SurfaceManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	logger.Info(ctx, "Creating new SurfaceManager", nil)

	if registry == nil {
		logger.Error(ctx, "Surface registry not initialized", nil)
		return nil, fmt.Errorf("surface registry not initialized")
	}
	if allocator == nil || nodes == nil {
		logger.Error(ctx, "Surface engine not initialized", nil)
		return nil, fmt.Errorf("surface engine not initialized")
	}
	if store == nil {
		logger.Warn(ctx, "Surface store not available, snapshots disabled", nil)
	}

	sm := &SurfaceManager{
		registry:  registry,
		store:     store,
		allocator: allocator,
		nodes:     nodes,
		logger:    logger,
	}
	logger.Info(ctx, "SurfaceManager created successfully", nil)
	return sm, nil
}

// SurfaceAdd creates a new empty surface. An empty id is generated.
func (sm *SurfaceManager) SurfaceAdd(id, parentID, description string) (*model.Surface, error) {
	s, err := sm.registry.Create(id, parentID)
	if err != nil {
		return nil, err
	}
	s.Description = description
	return s, nil
}

// SurfaceGet returns a live surface.
func (sm *SurfaceManager) SurfaceGet(id, parentID string) (*model.Surface, error) {
	return sm.registry.Find(id, parentID)
}

// SurfaceList returns a summary of every live surface.
func (sm *SurfaceManager) SurfaceList() []model.SurfaceInfo {
	all := sm.registry.All()
	infos := make([]model.SurfaceInfo, 0, len(all))
	for _, s := range all {
		infos = append(infos, s.Info())
	}
	return infos
}

// SurfaceDelete removes a live surface and its stored snapshot, if any.
func (sm *SurfaceManager) SurfaceDelete(id, parentID string) error {
	ctx := context.Background()
	if err := sm.registry.Remove(id, parentID); err != nil {
		return err
	}
	if sm.store == nil {
		return nil
	}
	if err := sm.store.SurfaceDelete(id, parentID); err != nil && !errors.Is(err, model.ErrNotFound) {
		sm.logger.Error(ctx, "Failed to delete surface snapshot", log.Fields{"error": err, "surfaceID": id})
		return fmt.Errorf("failed to delete surface snapshot: %w", err)
	}
	return nil
}

// SurfaceSave stores a snapshot of a live surface.
func (sm *SurfaceManager) SurfaceSave(id, parentID string) error {
	if sm.store == nil {
		return fmt.Errorf("save surface: %w", model.ErrFeatureDisabled)
	}
	s, err := sm.registry.Find(id, parentID)
	if err != nil {
		return err
	}
	return sm.store.SurfaceSave(s)
}

// SurfaceLoad restores a stored snapshot, replacing the live surface with
// the same id.
func (sm *SurfaceManager) SurfaceLoad(id, parentID string) (*model.Surface, error) {
	ctx := context.Background()
	if sm.store == nil {
		return nil, fmt.Errorf("load surface: %w", model.ErrFeatureDisabled)
	}
	cfg, err := sm.store.SurfaceLoad(id, parentID)
	if err != nil {
		return nil, err
	}
	s, err := codec.Restore(*cfg, sm.allocator, sm.nodes)
	if err != nil {
		sm.logger.Error(ctx, "Failed to restore surface snapshot", log.Fields{"error": err, "surfaceID": id})
		return nil, fmt.Errorf("failed to restore surface %s: %w", id, err)
	}
	if err := sm.registry.Register(s); err != nil {
		return nil, err
	}
	sm.logger.Info(ctx, "Surface loaded", log.Fields{"surfaceID": s.ID, "objects": len(s.Objects)})
	return s, nil
}

// SurfaceStored lists the stored snapshots.
func (sm *SurfaceManager) SurfaceStored() ([]storage.SurfaceRecord, error) {
	if sm.store == nil {
		return nil, fmt.Errorf("list snapshots: %w", model.ErrFeatureDisabled)
	}
	return sm.store.SurfaceList()
}
