package encoder

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/telemetry"
)

// NativeEncoder is a pure Go encoder for hosts built without cgo.
// It reads JPEG, PNG, GIF, BMP, TIFF and WebP, but only writes JPEG
// and PNG. The standard encoders never write metadata, so
// StripMetadata has no effect.
type NativeEncoder struct {
	telemetry *telemetry.TelemetrySvc
	scaler    draw.Scaler
}

func NewNativeEncoder(telemetry *telemetry.TelemetrySvc) *NativeEncoder {
	return &NativeEncoder{
		telemetry: telemetry,
		scaler:    draw.CatmullRom,
	}
}

func (e *NativeEncoder) Formats() []models.Format {
	return []models.Format{models.FormatJPEG, models.FormatPNG}
}

func (e *NativeEncoder) Encode(
	ctx context.Context,
	src models.SourceImage,
	size models.SizeSpec,
	cfg models.ProcessingConfig,
) (*Result, error) {
	if err := checkGeometry(size); err != nil {
		return nil, err
	}

	if cfg.Format != models.FormatJPEG && cfg.Format != models.FormatPNG {
		return nil, &EncodeError{
			Name:   src.Name,
			Format: cfg.Format,
			Err:    ErrUnsupportedFormat,
		}
	}

	if _, err := Sniff(src); err != nil {
		return nil, err
	}

	img, srcFormat, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, &DecodeError{Name: src.Name, Err: err}
	}

	slog.Debug(
		"Encoding variant",
		"origFile", src.Name,
		"sourceFormat", srcFormat,
		"targetSize", size.String(),
		"format", cfg.Format,
	)

	// Stretch onto the exact target box
	resized := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	e.scaler.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	pass := func(tenths int) ([]byte, error) {
		var buf bytes.Buffer
		var err error

		switch cfg.Format {
		case models.FormatJPEG:
			err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: tenths * 10})
		case models.FormatPNG:
			pngEnc := png.Encoder{CompressionLevel: png.DefaultCompression}
			err = pngEnc.Encode(&buf, resized)
		}
		if err != nil {
			return nil, &EncodeError{
				Name:   src.Name,
				Format: cfg.Format,
				Err:    err,
			}
		}

		return buf.Bytes(), nil
	}

	return encodeWithinBudget(
		cfg.Quality.Tenths(),
		cfg.MaxFileSizeBytes,
		pass,
		retryRecorder(e.telemetry, src.Name, size, cfg),
	)
}
