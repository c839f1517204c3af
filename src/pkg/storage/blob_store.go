package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/crypto/blake2b"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// BlobInfo describes a stored image blob.
type BlobInfo struct {
	Hash       string
	Name       string
	MIME       string
	Size       int64
	SourcePath string
	Created    time.Time
}

// BlobStore defines the interface for image blob storage operations.
type BlobStore interface {
	BlobPut(sourcePath string) (BlobInfo, error)
	BlobGet(name string) ([]byte, BlobInfo, error)
	BlobPath(name string) string
	BlobDelete(name string) error
}

// BlobStorage keeps image bytes as files in a directory, indexed in the
// blobs table by content hash.
type BlobStorage struct {
	storage *Storage
	dir     string
	logger  *log.Logger
}

// NewBlobStorage creates a new BlobStorage writing into dir.
func NewBlobStorage(storage *Storage, dir string) (*BlobStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		storage.logger.Error(context.Background(), "Failed to create blob directory", log.Fields{"error": err, "directory": dir})
		return nil, fmt.Errorf("failed to create blob directory '%s': %w", dir, err)
	}
	return &BlobStorage{storage: storage, dir: dir, logger: storage.logger}, nil
}

// HashBytes returns the hex blake2b-256 digest of data.
func HashBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BlobPut copies the image at sourcePath into the store. Identical content is
// stored once and the existing blob is returned. A different image with the
// same file name is stored as "name(1).ext", "name(2).ext" and so on.
func (bs *BlobStorage) BlobPut(sourcePath string) (BlobInfo, error) {
	ctx := context.Background()
	bs.logger.Info(ctx, "Storing image blob", log.Fields{"source": sourcePath})

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("failed to read image: %w", err)
	}
	if !filetype.IsImage(data) {
		bs.logger.Warn(ctx, "Rejected non-image blob", log.Fields{"source": sourcePath})
		return BlobInfo{}, model.NewValidationError("store image", "%s is not an image", filepath.Base(sourcePath))
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("failed to detect image type: %w", err)
	}

	hash := HashBytes(data)
	if existing, err := bs.byHash(hash); err == nil {
		bs.logger.Info(ctx, "Image blob already stored", log.Fields{"hash": hash, "name": existing.Name})
		return existing, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return BlobInfo{}, err
	}

	name, err := bs.freeName(filepath.Base(sourcePath))
	if err != nil {
		return BlobInfo{}, err
	}
	info := BlobInfo{
		Hash:       hash,
		Name:       name,
		MIME:       kind.MIME.Value,
		Size:       int64(len(data)),
		SourcePath: sourcePath,
		Created:    time.Now(),
	}

	db := bs.storage.GetDatabase()
	if err = db.Begin(); err != nil {
		return BlobInfo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Rollback()
		}
	}()

	_, err = db.Exec(
		"INSERT INTO blobs (hash, name, mime, size, source_path, created) VALUES (?, ?, ?, ?, ?, ?)",
		info.Hash, info.Name, info.MIME, info.Size, info.SourcePath, info.Created,
	)
	if err != nil {
		bs.logger.Error(ctx, "Failed to index image blob", log.Fields{"error": err, "name": name})
		return BlobInfo{}, fmt.Errorf("failed to index blob %s: %w", name, err)
	}
	if err = os.WriteFile(bs.BlobPath(name), data, 0644); err != nil {
		bs.logger.Error(ctx, "Failed to write image blob", log.Fields{"error": err, "name": name})
		return BlobInfo{}, fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	if err = db.Commit(); err != nil {
		os.Remove(bs.BlobPath(name))
		return BlobInfo{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	bs.logger.Info(ctx, "Image blob stored", log.Fields{"name": name, "hash": hash, "mime": info.MIME})
	return info, nil
}

// BlobGet returns the bytes and metadata of a stored blob. A blob whose file
// no longer matches its hash is reported as an error.
func (bs *BlobStorage) BlobGet(name string) ([]byte, BlobInfo, error) {
	info, err := bs.byName(name)
	if err != nil {
		return nil, BlobInfo{}, err
	}
	data, err := os.ReadFile(bs.BlobPath(name))
	if err != nil {
		return nil, BlobInfo{}, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	if HashBytes(data) != info.Hash {
		bs.logger.Error(context.Background(), "Image blob hash mismatch", log.Fields{"name": name})
		return nil, BlobInfo{}, fmt.Errorf("blob %s does not match its hash", name)
	}
	return data, info, nil
}

// BlobPath returns the file path of a blob name.
func (bs *BlobStorage) BlobPath(name string) string {
	return filepath.Join(bs.dir, name)
}

// BlobDelete removes a blob and its index row.
func (bs *BlobStorage) BlobDelete(name string) error {
	result, err := bs.storage.GetDatabase().Exec("DELETE FROM blobs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("blob %s: %w", name, model.ErrNotFound)
	}
	if err := os.Remove(bs.BlobPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob file %s: %w", name, err)
	}
	bs.logger.Info(context.Background(), "Image blob deleted", log.Fields{"name": name})
	return nil
}

func (bs *BlobStorage) byHash(hash string) (BlobInfo, error) {
	return bs.scan("hash", hash)
}

func (bs *BlobStorage) byName(name string) (BlobInfo, error) {
	return bs.scan("name", name)
}

func (bs *BlobStorage) scan(column, value string) (BlobInfo, error) {
	var info BlobInfo
	err := bs.storage.GetDatabase().QueryRow(
		"SELECT hash, name, mime, size, source_path, created FROM blobs WHERE "+column+" = ?", value,
	).Scan(&info.Hash, &info.Name, &info.MIME, &info.Size, &info.SourcePath, &info.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return BlobInfo{}, fmt.Errorf("blob %s: %w", value, model.ErrNotFound)
	}
	if err != nil {
		return BlobInfo{}, fmt.Errorf("failed to query blob %s: %w", value, err)
	}
	return info, nil
}

// freeName returns name, or the first "base(n).ext" not used by another blob
// or file.
func (bs *BlobStorage) freeName(name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 1; ; n++ {
		_, err := bs.byName(candidate)
		if errors.Is(err, model.ErrNotFound) {
			if _, statErr := os.Stat(bs.BlobPath(candidate)); os.IsNotExist(statErr) {
				return candidate, nil
			}
		} else if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s(%d)%s", base, n, ext)
	}
}
