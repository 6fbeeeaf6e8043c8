package services

import (
	"compress/flate"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giobyte8/imgbatch/internal/archive"
	"github.com/giobyte8/imgbatch/internal/encoder"
	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/naming"
	"github.com/giobyte8/imgbatch/internal/telemetry"
	"github.com/giobyte8/imgbatch/internal/telemetry/metrics"
)

type BatchConfig struct {

	// Maximum number of pairs encoded at once. Values below 2 keep
	// encoding strictly sequential.
	Concurrency int

	CollisionPolicy archive.CollisionPolicy

	// Deflate level for the archive, see compress/flate. The zero value
	// is flate.NoCompression, DefaultBatchConfig selects
	// flate.DefaultCompression.
	CompressionLevel int
}

// DefaultBatchConfig encodes sequentially, overwrites colliding archive
// paths and compresses with the default deflate level.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency:      1,
		CollisionPolicy:  archive.Overwrite,
		CompressionLevel: flate.DefaultCompression,
	}
}

// BatchRequest holds everything one run needs. Images and Sizes are
// processed in the given order.
type BatchRequest struct {
	Images     []models.SourceImage
	Sizes      []models.SizeSpec
	Naming     models.NamingConfig
	Processing models.ProcessingConfig
	Export     models.ExportConfig
}

type BatchResult struct {
	RunID uuid.UUID

	// Name to offer the archive under, "<archiveName>.zip"
	ArchiveFileName string
	Archive         []byte

	// One entry per (image, size) pair in image-major, size-minor
	// order. Entries carry no encoded bytes.
	Items []models.ProcessedImage
}

type BatchService struct {
	config    BatchConfig
	encoder   encoder.Encoder
	emitter   Emitter
	telemetry *telemetry.TelemetrySvc
}

// NewBatchService builds the orchestrator. emitter may be nil, in which
// case individual downloads are not delivered even when requested.
func NewBatchService(
	config BatchConfig,
	encoder encoder.Encoder,
	emitter Emitter,
	telemetry *telemetry.TelemetrySvc,
) *BatchService {
	return &BatchService{
		config:    config,
		encoder:   encoder,
		emitter:   emitter,
		telemetry: telemetry,
	}
}

type pair struct {
	index int
	image models.SourceImage
	size  models.SizeSpec
}

// Run resizes every image to every size and packages the results into a
// single archive. Any failing pair aborts the whole run and no archive
// is returned. Variants already handed to the emitter are not taken
// back. ctx is checked between pairs.
func (s *BatchService) Run(
	ctx context.Context,
	req BatchRequest,
) (*BatchResult, error) {
	if len(req.Images) == 0 {
		return nil, &BatchError{Kind: EmptyImages, Index: -1, Err: ErrEmptyImages}
	}
	if len(req.Sizes) == 0 {
		return nil, &BatchError{Kind: EmptySizes, Index: -1, Err: ErrEmptySizes}
	}

	runID := uuid.New()
	pairs := pairsOf(req.Images, req.Sizes)

	slog.Info(
		"Starting batch run",
		"runId", runID,
		"images", len(req.Images),
		"sizes", len(req.Sizes),
		"variants", len(pairs),
		"format", req.Processing.Format,
		"quality", req.Processing.Quality,
	)
	s.telemetry.Metrics().Increment(
		metrics.BatchRunRequested,
		map[string]string{
			"format":   string(req.Processing.Format),
			"variants": strconv.Itoa(len(pairs)),
		},
	)

	if req.Export.EmitIndividualDownloads && s.emitter == nil {
		slog.Warn(
			"Individual downloads requested but no emitter configured",
			"runId", runID,
		)
	}

	var prefetched []*encoder.Result
	if s.config.Concurrency > 1 && len(pairs) > 1 {
		var err error
		prefetched, err = s.encodeParallel(ctx, pairs, req.Processing)
		if err != nil {
			return nil, err
		}
	}

	packager := archive.NewPackager(
		archive.WithCollisionPolicy(s.config.CollisionPolicy),
		archive.WithCompressionLevel(s.config.CompressionLevel),
	)

	// Run scoped, numbers follow processing order
	var seq naming.Sequence
	items := make([]models.ProcessedImage, 0, len(pairs))

	for _, p := range pairs {
		select {
		case <-ctx.Done():
			slog.Warn(
				"Context cancelled during batch run",
				"runId", runID,
				"processed", len(items),
			)
			return nil, fmt.Errorf("batch run %s cancelled: %w", runID, ctx.Err())
		default:
			// Continue processing
		}

		var res *encoder.Result
		if prefetched != nil {
			res = prefetched[p.index]
			prefetched[p.index] = nil
		} else {
			var err error
			res, err = s.encoder.Encode(ctx, p.image, p.size, req.Processing)
			if err != nil {
				return nil, itemFailed(StageEncode, p.index, p.image.Name, p.size, err)
			}
		}

		seqNum := 0
		if req.Naming.UseSequentialNumbers {
			seqNum = seq.Next()
		}

		fileName := naming.FileName(
			p.image.Name,
			p.size.Width,
			p.size.Height,
			req.Naming,
			req.Processing.Format,
			seqNum,
		)
		processed := models.ProcessedImage{
			OriginalName: p.image.Name,
			Width:        p.size.Width,
			Height:       p.size.Height,
			FileName:     fileName,
			ArchivePath: archive.EntryPath(
				req.Export.OrganizeBySize,
				p.size.Width,
				p.size.Height,
				fileName,
			),
			Quality: res.Quality,
			Size:    len(res.Data),
			Data:    res.Data,
		}

		if err := packager.Put(processed.ArchivePath, processed.Data); err != nil {
			return nil, itemFailed(StagePackage, p.index, p.image.Name, p.size, err)
		}

		if req.Export.EmitIndividualDownloads && s.emitter != nil {
			if err := s.emitter.Emit(ctx, processed); err != nil {
				return nil, itemFailed(StageEmit, p.index, p.image.Name, p.size, err)
			}
		}

		slog.Debug(
			"Variant created",
			"runId", runID,
			"fileName", fileName,
			"path", processed.ArchivePath,
			"quality", processed.Quality,
			"attempts", res.Attempts,
			"size", processed.Size,
		)
		s.telemetry.Metrics().Increment(
			metrics.VariantCreated,
			map[string]string{
				"format":     string(req.Processing.Format),
				"targetSize": p.size.String(),
			},
		)

		items = append(items, processed.Metadata())
	}

	archiveData, err := packager.Seal()
	if err != nil {
		return nil, &BatchError{
			Kind:  ArchiveFailed,
			Stage: StageSeal,
			Index: -1,
			Err:   err,
		}
	}
	s.telemetry.Metrics().Increment(metrics.ArchiveSealed, nil)

	slog.Info(
		"Batch run finished",
		"runId", runID,
		"archive", req.Export.ArchiveFileName(),
		"entries", packager.Len(),
		"bytes", len(archiveData),
	)

	return &BatchResult{
		RunID:           runID,
		ArchiveFileName: req.Export.ArchiveFileName(),
		Archive:         archiveData,
		Items:           items,
	}, nil
}

// encodeParallel encodes all pairs with bounded concurrency. Results are
// indexed by pair position so assembly can still happen in order. After
// a failure only pairs with a higher index are skipped, so the reported
// failure is always the one with the lowest index.
func (s *BatchService) encodeParallel(
	ctx context.Context,
	pairs []pair,
	cfg models.ProcessingConfig,
) ([]*encoder.Result, error) {
	results := make([]*encoder.Result, len(pairs))
	errs := make([]error, len(pairs))

	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(pairs)))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)

	for _, p := range pairs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if int64(p.index) > firstFailed.Load() {
				return nil
			}

			res, err := s.encoder.Encode(ctx, p.image, p.size, cfg)
			if err != nil {
				errs[p.index] = err
				for {
					current := firstFailed.Load()
					if int64(p.index) >= current ||
						firstFailed.CompareAndSwap(current, int64(p.index)) {
						break
					}
				}
				return err
			}

			results[p.index] = res
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		return results, nil
	}

	if idx := int(firstFailed.Load()); idx < len(pairs) {
		p := pairs[idx]
		return nil, itemFailed(StageEncode, p.index, p.image.Name, p.size, errs[idx])
	}

	return nil, fmt.Errorf("batch run cancelled: %w", waitErr)
}

func pairsOf(images []models.SourceImage, sizes []models.SizeSpec) []pair {
	pairs := make([]pair, 0, len(images)*len(sizes))
	for _, img := range images {
		for _, size := range sizes {
			pairs = append(pairs, pair{
				index: len(pairs),
				image: img,
				size:  size,
			})
		}
	}

	return pairs
}
