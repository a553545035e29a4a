package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"MarketBrief/internal/domain/models"
	domrepo "MarketBrief/internal/domain/repository"
)

// WriteupSuffix is appended to the date to form a writeup file name.
const WriteupSuffix = "dailywriteup.txt"

// FileStore keeps the latest snapshot and the daily writeups on local disk.
type FileStore struct {
	snapshotPath string
	writeupDir   string
}

var (
	_ domrepo.SnapshotStore = (*FileStore)(nil)
	_ domrepo.WriteupStore  = (*FileStore)(nil)
)

// NewFileStore stores the snapshot at dataDir/snapshotFile and writeups under dataDir/writeupDir.
func NewFileStore(dataDir, snapshotFile, writeupDir string) *FileStore {
	return &FileStore{
		snapshotPath: filepath.Join(dataDir, snapshotFile),
		writeupDir:   filepath.Join(dataDir, writeupDir),
	}
}

// WriteupPath returns the file for the writeup of date (YYYY-MM-DD).
func (s *FileStore) WriteupPath(date string) string {
	return filepath.Join(s.writeupDir, date+WriteupSuffix)
}

// Save replaces the snapshot file atomically.
func (s *FileStore) Save(ctx context.Context, doc *models.SnapshotDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeAtomic(s.snapshotPath, b); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return s.snapshotPath, nil
}

// Load returns the raw snapshot bytes or ErrSnapshotNotFound.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.snapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domrepo.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return b, nil
}

// SaveWriteup writes the brief for date, creating the directory when needed.
func (s *FileStore) SaveWriteup(ctx context.Context, date, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if date == "" {
		return "", errors.New("writeup date is required")
	}
	path := s.WriteupPath(date)
	if err := writeAtomic(path, []byte(text)); err != nil {
		return "", fmt.Errorf("save writeup: %w", err)
	}
	return path, nil
}

// LoadWriteup returns the brief for date or ErrWriteupNotFound.
func (s *FileStore) LoadWriteup(ctx context.Context, date string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(s.WriteupPath(date))
	if errors.Is(err, fs.ErrNotExist) {
		return "", domrepo.ErrWriteupNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read writeup: %w", err)
	}
	return string(b), nil
}

// writeAtomic writes to a temp file in the target directory and renames it into place,
// so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
