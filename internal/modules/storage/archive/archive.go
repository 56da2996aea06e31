// Package archive produces zip snapshots of the syllabus data layout: the
// index document, uploaded PDFs and cached insights, plus a manifest.
// Snapshots live in their own directory outside the data dir so they never
// include themselves, and can optionally be pushed to S3-compatible storage.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/syllabind/core/internal/config"
)

const (
	archiveFormat  = "syllabind-archive"
	archiveVersion = 1

	// zipRoot prefixes every entry so an unzip lands in one folder.
	zipRoot = "syllabind"
)

// Layout names the locations a snapshot covers and where snapshots go.
type Layout struct {
	IndexPath   string
	UploadsDir  string
	InsightsDir string
	ArchiveDir  string
}

// Manifest describes one snapshot, stored as manifest.json inside the zip.
type Manifest struct {
	Format    string         `json:"format"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Counts    ManifestCounts `json:"counts"`
}

type ManifestCounts struct {
	Syllabi  int `json:"syllabi"`
	Uploads  int `json:"uploads"`
	Insights int `json:"insights"`
}

// Snapshot is one archive written to disk.
type Snapshot struct {
	Filename  string
	Path      string
	Data      []byte
	CreatedAt time.Time
	Manifest  Manifest
}

// Item is one archive file as reported by List.
type Item struct {
	Filename  string    `json:"filename"`
	Size      string    `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	cfg    appcfg.ArchiveConfig
	layout Layout
	logger *zap.Logger
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(cfg appcfg.ArchiveConfig, layout Layout, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		layout: layout,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory snapshots are written to.
func (s *Service) Dir() string { return s.layout.ArchiveDir }

// CreateSnapshot builds a zip of the current data layout and writes it to the
// archive directory. A missing index or empty upload/insight dirs still yield
// a valid snapshot.
func (s *Service) CreateSnapshot() (*Snapshot, error) {
	now := time.Now()
	manifest := Manifest{
		Format:    archiveFormat,
		Version:   archiveVersion,
		CreatedAt: now.UTC(),
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	indexData, err := os.ReadFile(s.layout.IndexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read index: %w", err)
		}
		indexData = []byte("{\n  \"syllabi\": []\n}")
	}
	manifest.Counts.Syllabi = countIndexRecords(indexData)
	if err := writeZipEntry(zw, zipRoot+"/index.json", indexData); err != nil {
		return nil, err
	}

	manifest.Counts.Uploads, err = addDirFiles(zw, s.layout.UploadsDir, zipRoot+"/uploads", ".pdf")
	if err != nil {
		return nil, err
	}
	manifest.Counts.Insights, err = addDirFiles(zw, s.layout.InsightsDir, zipRoot+"/insights", ".txt")
	if err != nil {
		return nil, err
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, zipRoot+"/manifest.json", manifestJSON); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.layout.ArchiveDir, 0o755); err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("archive-%s.zip", now.Format("2006-01-02T15-04-05"))
	path := filepath.Join(s.layout.ArchiveDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	return &Snapshot{
		Filename:  filename,
		Path:      path,
		Data:      buf.Bytes(),
		CreatedAt: now,
		Manifest:  manifest,
	}, nil
}

// List returns the archives on disk, newest first.
func (s *Service) List() []Item {
	entries, err := os.ReadDir(s.layout.ArchiveDir)
	if err != nil {
		return []Item{}
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{
			Filename:  e.Name(),
			Size:      formatSize(info.Size()),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].Filename > items[j].Filename
	})
	return items
}

// Read loads one archive by filename. The name is reduced to its base so
// traversal through the parameter is not possible.
func (s *Service) Read(filename string) ([]byte, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.layout.ArchiveDir, name))
}

// Delete removes one archive by filename.
func (s *Service) Delete(filename string) error {
	name, err := cleanFilename(filename)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.layout.ArchiveDir, name))
}

// Prune removes archives beyond the newest keep. keep <= 0 disables pruning.
func (s *Service) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	items := s.List()
	if len(items) <= keep {
		return 0, nil
	}

	removed := 0
	var firstErr error
	for _, item := range items[keep:] {
		if err := os.Remove(filepath.Join(s.layout.ArchiveDir, item.Filename)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// Run is the scheduled archive pass: snapshot, optional S3 push, prune.
func (s *Service) Run(ctx context.Context) error {
	snap, err := s.CreateSnapshot()
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	s.logger.Info("archive snapshot created",
		zap.String("filename", snap.Filename),
		zap.Int("syllabi", snap.Manifest.Counts.Syllabi),
		zap.Int("uploads", snap.Manifest.Counts.Uploads),
		zap.Int("insights", snap.Manifest.Counts.Insights))

	if s.cfg.S3.Enabled {
		uploader, err := newS3Uploader(s.cfg.S3)
		if err != nil {
			return fmt.Errorf("s3 config: %w", err)
		}
		key := renderObjectKey(s.cfg.S3.PathTemplate, snap.Filename, snap.CreatedAt)
		url, err := uploader.Upload(ctx, key, snap.Data, "application/zip")
		if err != nil {
			return fmt.Errorf("s3 upload: %w", err)
		}
		s.logger.Info("archive uploaded", zap.String("key", key), zap.String("url", url))
	}

	removed, err := s.Prune(s.cfg.Keep)
	if err != nil {
		return fmt.Errorf("prune archives: %w", err)
	}
	if removed > 0 {
		s.logger.Info("old archives pruned", zap.Int("removed", removed), zap.Int("keep", s.cfg.Keep))
	}
	return nil
}

func cleanFilename(raw string) (string, error) {
	name := strings.TrimSpace(filepath.Base(raw))
	if name == "" || name == "." || !strings.HasSuffix(name, ".zip") {
		return "", fmt.Errorf("invalid archive filename %q", raw)
	}
	return name, nil
}

func countIndexRecords(data []byte) int {
	var idx struct {
		Syllabi []json.RawMessage `json:"syllabi"`
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return 0
	}
	return len(idx.Syllabi)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// addDirFiles copies every regular file with the given extension into the
// zip under prefix. A missing directory counts as empty.
func addDirFiles(zw *zip.Writer, dir, prefix, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return count, err
		}
		if err := writeZipEntry(zw, prefix+"/"+e.Name(), data); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
