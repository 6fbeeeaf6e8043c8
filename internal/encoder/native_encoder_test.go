package encoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/telemetry"
)

func newNativeEncoder() *NativeEncoder {
	return NewNativeEncoder(telemetry.NewNoopTelemetrySvc())
}

func TestNativeEncodeExactDimensions(t *testing.T) {
	enc := newNativeEncoder()
	src := noisyPNG(t, "photo.png", 64, 48)

	tests := []struct {
		format     models.Format
		size       models.SizeSpec
		wantFormat string
	}{
		{models.FormatJPEG, models.SizeSpec{Width: 32, Height: 32}, "jpeg"},
		{models.FormatJPEG, models.SizeSpec{Width: 1, Height: 1}, "jpeg"},
		{models.FormatPNG, models.SizeSpec{Width: 100, Height: 20}, "png"},
		{models.FormatPNG, models.SizeSpec{Width: 7, Height: 130}, "png"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format)+"_"+tt.size.String(), func(t *testing.T) {
			res, err := enc.Encode(context.Background(), src, tt.size, models.ProcessingConfig{
				Quality: models.QualityHigh,
				Format:  tt.format,
			})
			require.NoError(t, err)

			cfg, format := decodedConfig(t, res.Data)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.size.Width, cfg.Width)
			assert.Equal(t, tt.size.Height, cfg.Height)
			assert.Equal(t, 0.9, res.Quality)
			assert.Equal(t, 1, res.Attempts)
		})
	}
}

func TestNativeEncodeSizeBudget(t *testing.T) {
	enc := newNativeEncoder()
	src := noisyPNG(t, "noise.png", 128, 128)
	size := models.SizeSpec{Width: 128, Height: 128}

	unbounded, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
		Quality: models.QualityHigh,
		Format:  models.FormatJPEG,
	})
	require.NoError(t, err)

	t.Run("unreachable budget stops at floor", func(t *testing.T) {
		res, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
			Quality:          models.QualityHigh,
			Format:           models.FormatJPEG,
			MaxFileSizeBytes: 1,
		})
		require.NoError(t, err)

		assert.Equal(t, 0.1, res.Quality)
		assert.Equal(t, 9, res.Attempts)
		assert.Greater(t, len(res.Data), 1)
		assert.Less(t, len(res.Data), len(unbounded.Data))
	})

	t.Run("reachable budget is met above floor", func(t *testing.T) {
		budget := len(unbounded.Data) - 1
		res, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
			Quality:          models.QualityHigh,
			Format:           models.FormatJPEG,
			MaxFileSizeBytes: budget,
		})
		require.NoError(t, err)

		assert.LessOrEqual(t, len(res.Data), budget)
		assert.Less(t, res.Quality, 0.9)
		assert.Greater(t, res.Attempts, 1)
	})

	t.Run("png ignores quality and reaches floor", func(t *testing.T) {
		res, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
			Quality:          models.QualityLow,
			Format:           models.FormatPNG,
			MaxFileSizeBytes: 1,
		})
		require.NoError(t, err)

		assert.Equal(t, 0.1, res.Quality)
		assert.Equal(t, 5, res.Attempts)
	})
}

func TestNativeEncodeIsDeterministic(t *testing.T) {
	enc := newNativeEncoder()
	src := noisyPNG(t, "photo.png", 40, 30)
	size := models.SizeSpec{Width: 20, Height: 10}
	cfg := models.ProcessingConfig{Quality: models.QualityMedium, Format: models.FormatJPEG}

	first, err := enc.Encode(context.Background(), src, size, cfg)
	require.NoError(t, err)
	second, err := enc.Encode(context.Background(), src, size, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
}

func TestNativeEncodeErrors(t *testing.T) {
	enc := newNativeEncoder()
	src := noisyPNG(t, "photo.png", 8, 8)
	cfg := models.ProcessingConfig{Quality: models.QualityHigh, Format: models.FormatJPEG}

	t.Run("invalid geometry", func(t *testing.T) {
		for _, size := range []models.SizeSpec{{Width: 0, Height: 10}, {Width: 10, Height: -1}} {
			_, err := enc.Encode(context.Background(), src, size, cfg)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := enc.Encode(context.Background(), src, models.SizeSpec{Width: 4, Height: 4}, models.ProcessingConfig{
			Format: models.FormatWebP,
		})

		var encodeErr *EncodeError
		require.ErrorAs(t, err, &encodeErr)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Equal(t, models.FormatWebP, encodeErr.Format)
	})

	t.Run("undecodable source", func(t *testing.T) {
		broken := models.SourceImage{Name: "broken.png", Data: src.Data[:40]}
		_, err := enc.Encode(context.Background(), broken, models.SizeSpec{Width: 4, Height: 4}, cfg)

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "broken.png", decodeErr.Name)
	})
}
