package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/giobyte8/imgbatch/internal/models"
)

// Emitter receives every variant of a run, in processing order, for
// delivery outside of the archive.
type Emitter interface {
	Emit(ctx context.Context, img models.ProcessedImage) error
}

// EmitterFunc adapts a plain function to Emitter
type EmitterFunc func(ctx context.Context, img models.ProcessedImage) error

func (f EmitterFunc) Emit(ctx context.Context, img models.ProcessedImage) error {
	return f(ctx, img)
}

// DirEmitter writes every variant as a standalone file into Dir
type DirEmitter struct {
	Dir string
}

func NewDirEmitter(dir string) *DirEmitter {
	return &DirEmitter{Dir: dir}
}

func (e *DirEmitter) Emit(ctx context.Context, img models.ProcessedImage) error {
	if _, err := os.Stat(e.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(e.Dir, 0755); err != nil {
			return fmt.Errorf(
				"failed to create individual downloads directory %s: %w",
				e.Dir,
				err,
			)
		}
	}

	absPath := filepath.Join(e.Dir, img.FileName)
	if err := os.WriteFile(absPath, img.Data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", absPath, err)
	}

	slog.Debug("Individual file written", "path", absPath, "size", img.Size)
	return nil
}
