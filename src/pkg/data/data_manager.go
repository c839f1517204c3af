// Package data provides data management functionality for the inkboard application.
// It coordinates the surface engine, the surface and drawable managers, replication
// and the file formats.
package data

import (
	"context"
	"fmt"

	"inkboard/src/pkg/anim"
	"inkboard/src/pkg/codec"
	"inkboard/src/pkg/event"
	"inkboard/src/pkg/export"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/mindmap"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/page"
	"inkboard/src/pkg/replication"
	"inkboard/src/pkg/storage"
	"inkboard/src/pkg/surface"
)

// DataManager is the main struct that coordinates all data operations
type DataManager struct {
	SurfaceManager  *SurfaceManager
	DrawableManager *DrawableManager
	Registry        *surface.Registry
	Allocator       *layer.Allocator
	Tree            *mindmap.Tree
	Pages           *page.Manager
	Bridge          *replication.Bridge
	Scheduler       *anim.Scheduler
	Renderer        *export.Renderer
	EventManager    *event.EventManager
	Config          *model.Config
	Logger          *log.Logger
}

// NewDataManager creates a new DataManager instance. surfaceStore and
// blobStore may be nil; the features depending on them are then disabled.
func NewDataManager(surfaceStore storage.SurfaceStore, blobStore storage.BlobStore, measurer mindmap.TextMeasurer, cfg *model.Config, logger *log.Logger) (*DataManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	ctx := context.Background()
	logger.Info(ctx, "Creating new DataManager", log.Fields{"participant": cfg.Participant})

	eventManager := event.NewEventManager(logger)
	m := &DataManager{
		EventManager: eventManager,
		Allocator:    layer.NewAllocator(cfg.OrderEpsilon, logger),
		Scheduler:    anim.NewScheduler(),
		Config:       cfg,
		Logger:       logger,
	}

	var err error
	m.Registry, err = surface.NewRegistry(eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface registry: %w", err)
	}
	m.Tree, err = mindmap.NewTree(m.Allocator, measurer, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create mind-map tree: %w", err)
	}
	m.Pages, err = page.NewManager(m.Allocator, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create page manager: %w", err)
	}

	// Initialize SurfaceManager
	m.SurfaceManager, err = NewSurfaceManager(m.Registry, surfaceStore, m.Allocator, m.Tree, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SurfaceManager: %w", err)
	}

	// Initialize DrawableManager
	m.DrawableManager, err = NewDrawableManager(m.Allocator, m.Tree, m.Pages, measurer, blobStore, m.Scheduler, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create DrawableManager: %w", err)
	}

	// Initialize replication; commands stay local until a sender is set
	m.Bridge, err = replication.NewBridge(cfg.Participant, m.Registry, m.Allocator, m.Tree, m.Pages, measurer, eventManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create replication bridge: %w", err)
	}

	// Transitions of destroyed objects stop, whatever destroyed them
	eventManager.Watch(event.DrawableDeleted, m.cancelTransition)
	eventManager.Watch(event.PageCleared, m.cancelTransition)

	var images export.ImageSource
	if blobStore != nil {
		images = blobStore
	}
	m.Renderer, err = export.NewRenderer(cfg.PixelsPerUnit, images, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	logger.Info(ctx, "DataManager created successfully", nil)
	return m, nil
}

// cancelTransition stops the transitions of the objects a delete or page
// clear destroyed. It runs for local and remote changes alike.
func (m *DataManager) cancelTransition(e event.Event) {
	switch data := e.Data.(type) {
	case event.DrawableEvent:
		if data.Object != nil {
			m.Scheduler.Cancel(data.Object.ID)
		}
	case event.PageEvent:
		for _, id := range data.Removed {
			m.Scheduler.Cancel(id)
		}
	}
}

// SurfaceExport writes the given surfaces to a file. The format follows the
// file extension.
func (m *DataManager) SurfaceExport(filename string, surfaces ...*model.Surface) error {
	if len(surfaces) == 0 {
		return model.NewValidationError("export surfaces", "no surface to export")
	}
	err := codec.SaveFile(codec.NewDocument(surfaces...), filename)
	if err != nil {
		m.Logger.Error(context.Background(), "Failed to export surfaces", log.Fields{"error": err, "file": filename})
		return fmt.Errorf("failed to export surfaces: %w", err)
	}
	m.Logger.Info(context.Background(), "Surfaces exported", log.Fields{"file": filename, "surfaces": len(surfaces)})
	return nil
}

// SurfaceImport reads surfaces from a file. Every surface is validated before
// any of them replaces a live surface with the same id.
func (m *DataManager) SurfaceImport(filename string) ([]*model.Surface, error) {
	ctx := context.Background()
	doc, err := codec.LoadFile(filename)
	if err != nil {
		m.Logger.Error(ctx, "Failed to import surfaces", log.Fields{"error": err, "file": filename})
		return nil, fmt.Errorf("failed to import surfaces: %w", err)
	}

	restored := make([]*model.Surface, 0, len(doc.Surfaces))
	for _, cfg := range doc.Surfaces {
		s, err := codec.Restore(cfg, m.Allocator, m.Tree)
		if err != nil {
			return nil, fmt.Errorf("failed to import surface %s: %w", cfg.ID, err)
		}
		if err := m.validateSurface(s); err != nil {
			return nil, fmt.Errorf("invalid surface structure: %w", err)
		}
		restored = append(restored, s)
	}
	for _, s := range restored {
		if err := m.Registry.Register(s); err != nil {
			return nil, err
		}
	}
	m.Logger.Info(ctx, "Surfaces imported", log.Fields{"file": filename, "surfaces": len(restored)})
	return restored, nil
}

// PageExport renders one page of a surface to a PNG file.
func (m *DataManager) PageExport(s *model.Surface, pageIdx int, filename string) error {
	if pageIdx < 0 || pageIdx >= s.MaxPageSize {
		return model.NewValidationError("export page", "page %d not in [0, %d)", pageIdx, s.MaxPageSize)
	}
	return m.Renderer.ExportPNG(s, pageIdx, filename)
}

// Validate checks the mind-map and layer invariants of a live surface.
func (m *DataManager) Validate(s *model.Surface) error {
	return m.validateSurface(s)
}

// validateSurface checks the mind-map structure and the allocated orders of
// every page.
func (m *DataManager) validateSurface(s *model.Surface) error {
	if err := m.Tree.Validate(s); err != nil {
		return err
	}
	for p := 0; p < s.MaxPageSize; p++ {
		if err := layer.Verify(s, p); err != nil {
			return err
		}
	}
	return nil
}
