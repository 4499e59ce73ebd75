// CLAUDE:SUMMARY JSON file store for the NOTAM collection: atomic save, rotating backups, clear, daily export.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/notamwatch/notam"
)

const (
	backupPrefix = "notams-backup-"
	backupSuffix = ".json"
	// Fixed width so lexical order is chronological.
	backupStamp = "2006-01-02T15-04-05.000000000Z"
)

// Config configures a Store.
type Config struct {
	// Path of the JSON document. Default: data/notams/notams.json.
	Path string
	// BackupDir receives a copy of the previous file before each save.
	// Empty disables backups.
	BackupDir string
	// MaxBackups is the number of backups kept. Default: 5.
	MaxBackups int
	// Now is the clock used for LastUpdated and backup names.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.Path == "" {
		c.Path = filepath.Join("data", "notams", "notams.json")
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Store reads and writes one collection file. It does not lock the file;
// callers must not run two writers against the same path.
type Store struct {
	cfg    Config
	logger *slog.Logger
}

// Open returns a Store for cfg. No file is touched until Load or Save.
func Open(cfg Config, logger *slog.Logger) *Store {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cfg: cfg, logger: logger.With("path", cfg.Path)}
}

// Path returns the collection file path.
func (s *Store) Path() string { return s.cfg.Path }

// Load reads the collection. A missing file or invalid JSON yields an empty
// collection; only I/O failures other than absence are returned as errors.
func (s *Store) Load(ctx context.Context) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("store: no existing file, starting empty")
		return NewCollection(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.cfg.Path, err)
	}

	c := NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		s.logger.Warn("store: corrupt file, starting empty", "error", err)
		return NewCollection(), nil
	}
	if c.Notams == nil {
		c.Notams = []notam.Record{}
	}
	if c.Metadata.Version == "" {
		c.Metadata.Version = FormatVersion
	}
	if c.Metadata.Source == "" {
		c.Metadata.Source = SourceName
	}
	c.TotalCount = len(c.Notams)
	return c, nil
}

// Save writes the collection atomically, backing up the previous file.
func (s *Store) Save(ctx context.Context, c *Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := *c
	out.TotalCount = len(out.Notams)
	out.LastUpdated = s.cfg.Now().UTC()
	if out.Metadata.Version == "" {
		out.Metadata = Metadata{Version: FormatVersion, Source: SourceName}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	if err := s.backup(); err != nil {
		s.logger.Warn("store: backup failed", "error", err)
	}

	if err := writeFileAtomic(s.cfg.Path, append(data, '\n')); err != nil {
		return err
	}
	// c reflects the file only once the write succeeded.
	*c = out
	s.logger.Info("store: saved", "total", c.TotalCount, "new", c.NewCount)
	return nil
}

// Clear backs up and removes the collection file.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.backup(); err != nil {
		s.logger.Warn("store: backup failed", "error", err)
	}
	if err := os.Remove(s.cfg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: clear: %w", err)
	}
	s.logger.Info("store: cleared")
	return nil
}

// DailyExport is the shape of an ExportDaily file.
type DailyExport struct {
	Notams      []notam.Record `json:"notams"`
	LastUpdated time.Time      `json:"lastUpdated"`
	TotalCount  int            `json:"totalCount"`
	Date        string         `json:"date"`
}

// ExportDaily writes records as a standalone daily file at path.
func (s *Store) ExportDaily(ctx context.Context, records []notam.Record, date, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []notam.Record{}
	}
	data, err := json.MarshalIndent(DailyExport{
		Notams:      records,
		LastUpdated: s.cfg.Now().UTC(),
		TotalCount:  len(records),
		Date:        date,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal export: %w", err)
	}
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return err
	}
	s.logger.Info("store: exported", "out", path, "date", date, "total", len(records))
	return nil
}

// Backups lists backup files, newest first.
func (s *Store) Backups() ([]string, error) {
	if s.cfg.BackupDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupSuffix) {
			names = append(names, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(s.cfg.BackupDir, n)
	}
	return out, nil
}

func (s *Store) backup() error {
	if s.cfg.BackupDir == "" {
		return nil
	}
	src, err := os.Open(s.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open current: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.cfg.BackupDir, err)
	}
	name := backupPrefix + s.cfg.Now().UTC().Format(backupStamp) + backupSuffix
	dst := filepath.Join(s.cfg.BackupDir, name)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	backups, err := s.Backups()
	if err != nil {
		return err
	}
	for _, old := range backups[min(len(backups), s.cfg.MaxBackups):] {
		if err := os.Remove(old); err != nil {
			s.logger.Warn("store: remove old backup", "file", old, "error", err)
		}
	}
	return nil
}

// writeFileAtomic writes data to path.tmp, syncs it and renames it over
// path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("store: create tmp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: write tmp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: sync tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
