package encoder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/discord/lilliput"

	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/telemetry"
	"github.com/giobyte8/imgbatch/internal/telemetry/metrics"
)

// Upper bound for a single Transform. Lilliput treats a zero timeout as
// already expired, which breaks multi step encoders such as WebP.
const encodeTimeout = time.Minute

var lilliputFileTypes = map[models.Format]string{
	models.FormatJPEG: ".jpeg",
	models.FormatPNG:  ".png",
	models.FormatWebP: ".webp",
}

// LilliputEncoder resizes and encodes through lilliput. JPEG and WebP
// honour the quality factor, PNG is lossless and ignores it. Output never
// carries source EXIF/XMP, so StripMetadata has nothing left to strip.
type LilliputEncoder struct {
	telemetry *telemetry.TelemetrySvc
}

func NewLilliputEncoder(
	telemetry *telemetry.TelemetrySvc,
) *LilliputEncoder {

	return &LilliputEncoder{
		telemetry: telemetry,
	}
}

func (e *LilliputEncoder) Formats() []models.Format {
	return []models.Format{models.FormatJPEG, models.FormatPNG, models.FormatWebP}
}

func (e *LilliputEncoder) Encode(
	ctx context.Context,
	src models.SourceImage,
	size models.SizeSpec,
	cfg models.ProcessingConfig,
) (*Result, error) {
	if err := checkGeometry(size); err != nil {
		return nil, err
	}

	fileType, ok := lilliputFileTypes[cfg.Format]
	if !ok {
		return nil, &EncodeError{
			Name:   src.Name,
			Format: cfg.Format,
			Err:    ErrUnsupportedFormat,
		}
	}

	kind, err := Sniff(src)
	if err != nil {
		return nil, err
	}

	// Decode once to retrieve original dimensions
	decoder, err := e.decode(src)
	if err != nil {
		return nil, err
	}
	origWidth, origHeight, err := e.getOrigDimensions(src.Name, decoder)
	decoder.Close()
	if err != nil {
		return nil, err
	}

	slog.Debug(
		"Encoding variant",
		"origFile", src.Name,
		"sourceType", kind.MIME.Value,
		"origSize", fmt.Sprintf("%dx%d", origWidth, origHeight),
		"targetSize", size.String(),
		"format", cfg.Format,
	)

	ops := lilliput.NewImageOps(
		max(origWidth, origHeight, size.Width, size.Height),
	)
	defer ops.Close()

	outputBuf := make([]byte, outputBufferSize(size))

	pass := func(tenths int) ([]byte, error) {

		// A decoder is consumed by Transform, each pass needs its own
		decoder, err := e.decode(src)
		if err != nil {
			return nil, err
		}
		defer decoder.Close()

		opts := &lilliput.ImageOptions{
			FileType:              fileType,
			Width:                 size.Width,
			Height:                size.Height,
			ResizeMethod:          lilliput.ImageOpsResize,
			NormalizeOrientation:  true,
			EncodeOptions:         encodeOptions(cfg.Format, tenths),
			EncodeTimeout:         encodeTimeout,
			DisableAnimatedOutput: true,
		}

		encoded, err := ops.Transform(decoder, opts, outputBuf)
		if err != nil {
			return nil, &EncodeError{
				Name:   src.Name,
				Format: cfg.Format,
				Err:    err,
			}
		}

		// outputBuf is reused by the next pass
		return bytes.Clone(encoded), nil
	}

	return encodeWithinBudget(
		cfg.Quality.Tenths(),
		cfg.MaxFileSizeBytes,
		pass,
		retryRecorder(e.telemetry, src.Name, size, cfg),
	)
}

func (e *LilliputEncoder) decode(src models.SourceImage) (lilliput.Decoder, error) {
	decoder, err := lilliput.NewDecoder(src.Data)
	if err != nil {
		return nil, &DecodeError{Name: src.Name, Err: err}
	}

	return decoder, nil
}

func (e *LilliputEncoder) getOrigDimensions(
	fileName string,
	decoder lilliput.Decoder,
) (int, int, error) {
	imgHeader, err := decoder.Header()
	if err != nil {
		return 0, 0, &DecodeError{Name: fileName, Err: err}
	}

	origWidth := imgHeader.Width()
	origHeight := imgHeader.Height()
	if origWidth == 0 || origHeight == 0 {
		return 0, 0, &DecodeError{
			Name: fileName,
			Err: fmt.Errorf(
				"invalid original image dimensions: width=%d, height=%d",
				origWidth,
				origHeight,
			),
		}
	}

	return origWidth, origHeight, nil
}

func encodeOptions(format models.Format, tenths int) map[int]int {
	switch format {
	case models.FormatJPEG:
		return map[int]int{lilliput.JpegQuality: tenths * 10}
	case models.FormatWebP:
		return map[int]int{lilliput.WebpQuality: tenths * 10}
	default:
		return map[int]int{}
	}
}

// outputBufferSize leaves room for an uncompressed RGBA frame plus
// container overhead, enough for any of the supported formats.
func outputBufferSize(size models.SizeSpec) int {
	return size.Width*size.Height*4 + 1<<20
}

// retryRecorder logs and counts every budget driven re-encode
func retryRecorder(
	telemetry *telemetry.TelemetrySvc,
	name string,
	size models.SizeSpec,
	cfg models.ProcessingConfig,
) func(tenths int, encodedSize int) {
	return func(tenths int, encodedSize int) {
		slog.Debug(
			"Encoded variant over size budget, lowering quality",
			"origFile", name,
			"targetSize", size.String(),
			"quality", float64(tenths)/10,
			"encodedSize", encodedSize,
			"budget", cfg.MaxFileSizeBytes,
		)

		telemetry.Metrics().Increment(
			metrics.EncodeRetry,
			map[string]string{
				"format":  string(cfg.Format),
				"quality": fmt.Sprintf("%.1f", float64(tenths)/10),
			},
		)
	}
}
