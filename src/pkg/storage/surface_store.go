package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkboard/src/pkg/codec"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// SurfaceRecord lists a stored surface snapshot.
type SurfaceRecord struct {
	ID          string
	ParentID    string
	Description string
	Objects     int
	Created     time.Time
	Updated     time.Time
}

// SurfaceStore defines the interface for surface snapshot storage operations.
type SurfaceStore interface {
	SurfaceSave(s *model.Surface) error
	SurfaceLoad(id, parentID string) (*codec.SurfaceConfig, error)
	SurfaceList() ([]SurfaceRecord, error)
	SurfaceDelete(id, parentID string) error
}

// SurfaceStorage implements the SurfaceStore interface.
type SurfaceStorage struct {
	storage *Storage
	logger  *log.Logger
}

// NewSurfaceStorage creates a new SurfaceStorage instance.
func NewSurfaceStorage(storage *Storage) *SurfaceStorage {
	return &SurfaceStorage{
		storage: storage,
		logger:  storage.logger,
	}
}

// SurfaceSave writes a snapshot of s, replacing an earlier one.
func (ss *SurfaceStorage) SurfaceSave(s *model.Surface) error {
	ctx := context.Background()
	ss.logger.Info(ctx, "Saving surface snapshot", log.Fields{"surfaceID": s.ID, "parentID": s.ParentID})

	data, err := codec.Encode(codec.NewDocument(s), codec.JSON)
	if err != nil {
		ss.logger.Error(ctx, "Failed to encode surface", log.Fields{"error": err, "surfaceID": s.ID})
		return fmt.Errorf("failed to encode surface %s: %w", s.ID, err)
	}

	now := time.Now()
	_, err = ss.storage.GetDatabase().Exec(`
		INSERT INTO surfaces (id, parent_id, description, objects, config, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, parent_id) DO UPDATE SET
			description = excluded.description,
			objects = excluded.objects,
			config = excluded.config,
			updated = excluded.updated`,
		s.ID, s.ParentID, s.Description, s.Info().Objects, data, now, now,
	)
	if err != nil {
		ss.logger.Error(ctx, "Failed to save surface", log.Fields{"error": err, "surfaceID": s.ID})
		return fmt.Errorf("failed to save surface %s: %w", s.ID, err)
	}

	ss.logger.Info(ctx, "Surface snapshot saved", log.Fields{"surfaceID": s.ID, "bytes": len(data)})
	return nil
}

// SurfaceLoad reads the snapshot of a surface.
func (ss *SurfaceStorage) SurfaceLoad(id, parentID string) (*codec.SurfaceConfig, error) {
	ctx := context.Background()
	ss.logger.Info(ctx, "Loading surface snapshot", log.Fields{"surfaceID": id, "parentID": parentID})

	var data []byte
	err := ss.storage.GetDatabase().QueryRow(
		"SELECT config FROM surfaces WHERE id = ? AND parent_id = ?", id, parentID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("surface snapshot %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		ss.logger.Error(ctx, "Failed to load surface", log.Fields{"error": err, "surfaceID": id})
		return nil, fmt.Errorf("failed to load surface %s: %w", id, err)
	}

	doc, err := codec.Decode(data, codec.JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode surface %s: %w", id, err)
	}
	if len(doc.Surfaces) != 1 {
		return nil, fmt.Errorf("surface snapshot %s holds %d surfaces", id, len(doc.Surfaces))
	}
	return &doc.Surfaces[0], nil
}

// SurfaceList returns every stored snapshot, most recently updated first.
func (ss *SurfaceStorage) SurfaceList() ([]SurfaceRecord, error) {
	rows, err := ss.storage.GetDatabase().Query(
		"SELECT id, parent_id, description, objects, created, updated FROM surfaces ORDER BY updated DESC, id",
	)
	if err != nil {
		ss.logger.Error(context.Background(), "Failed to list surfaces", log.Fields{"error": err})
		return nil, fmt.Errorf("failed to list surfaces: %w", err)
	}
	defer rows.Close()

	var records []SurfaceRecord
	for rows.Next() {
		var r SurfaceRecord
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Description, &r.Objects, &r.Created, &r.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan surface row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SurfaceDelete removes a stored snapshot.
func (ss *SurfaceStorage) SurfaceDelete(id, parentID string) error {
	result, err := ss.storage.GetDatabase().Exec("DELETE FROM surfaces WHERE id = ? AND parent_id = ?", id, parentID)
	if err != nil {
		ss.logger.Error(context.Background(), "Failed to delete surface", log.Fields{"error": err, "surfaceID": id})
		return fmt.Errorf("failed to delete surface %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("surface snapshot %s: %w", id, model.ErrNotFound)
	}
	ss.logger.Info(context.Background(), "Surface snapshot deleted", log.Fields{"surfaceID": id})
	return nil
}
