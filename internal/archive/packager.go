package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

var (
	ErrSealed        = errors.New("archive already sealed")
	ErrDuplicatePath = errors.New("duplicate archive path")
)

// CollisionPolicy decides what Put does with a path already present
type CollisionPolicy int

const (
	// Last write wins. The entry keeps the position of its first Put.
	Overwrite CollisionPolicy = iota

	// Put fails with ErrDuplicatePath
	Fail
)

type Option func(*Packager)

// WithCompressionLevel sets the deflate level used when sealing,
// flate.BestSpeed .. flate.BestCompression.
func WithCompressionLevel(level int) Option {
	return func(p *Packager) {
		p.level = level
	}
}

func WithCollisionPolicy(policy CollisionPolicy) Option {
	return func(p *Packager) {
		p.policy = policy
	}
}

// WithModTime fixes the modification time stamped on every entry
func WithModTime(t time.Time) Option {
	return func(p *Packager) {
		p.modTime = t
	}
}

// Packager accumulates named blobs and seals them into a single zip
// archive. Entries are written in first-insertion order.
// A Packager belongs to a single run and is not safe for concurrent use.
type Packager struct {
	entries map[string][]byte
	order   []string
	sealed  bool

	level   int
	policy  CollisionPolicy
	modTime time.Time
}

func NewPackager(opts ...Option) *Packager {
	p := &Packager{
		entries: make(map[string][]byte),
		level:   flate.DefaultCompression,
		policy:  Overwrite,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// EntryPath returns the archive path for a variant, either the bare
// file name or "<w>x<h>/<fileName>" when organizing by size.
func EntryPath(organizeBySize bool, width, height int, fileName string) string {
	if !organizeBySize {
		return fileName
	}
	return fmt.Sprintf("%dx%d/%s", width, height, fileName)
}

func (p *Packager) Put(path string, data []byte) error {
	if p.sealed {
		return fmt.Errorf("failed to add %s: %w", path, ErrSealed)
	}

	if _, exists := p.entries[path]; exists {
		if p.policy == Fail {
			return fmt.Errorf("failed to add %s: %w", path, ErrDuplicatePath)
		}

		slog.Warn("Archive entry overwritten", "path", path)
		p.entries[path] = data
		return nil
	}

	p.entries[path] = data
	p.order = append(p.order, path)
	return nil
}

// Len returns the number of distinct entries
func (p *Packager) Len() int {
	return len(p.order)
}

// Seal compresses all entries into zip bytes. It can only be called
// once, afterwards both Put and Seal fail with ErrSealed.
func (p *Packager) Seal() ([]byte, error) {
	if p.sealed {
		return nil, ErrSealed
	}
	p.sealed = true

	modTime := p.modTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, p.level)
	})

	for _, path := range p.order {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     path,
			Method:   zip.Deflate,
			Modified: modTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", path, err)
		}

		if _, err := w.Write(p.entries[path]); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	slog.Debug("Archive sealed", "entries", len(p.order), "bytes", buf.Len())

	// Entries are no longer needed once compressed
	p.entries = nil
	return buf.Bytes(), nil
}
