package encoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/webp"

	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/telemetry"
)

func newLilliputEncoder() *LilliputEncoder {
	return NewLilliputEncoder(telemetry.NewNoopTelemetrySvc())
}

func TestLilliputEncodeExactDimensions(t *testing.T) {
	enc := newLilliputEncoder()
	src := noisyPNG(t, "photo.png", 120, 80)

	for _, format := range enc.Formats() {
		for _, size := range []models.SizeSpec{
			{Width: 60, Height: 60},
			{Width: 200, Height: 50},
			{Width: 1, Height: 1},
		} {
			t.Run(string(format)+"_"+size.String(), func(t *testing.T) {
				res, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
					Quality: models.QualityHigh,
					Format:  format,
				})
				require.NoError(t, err)

				cfg, decodedFormat := decodedConfig(t, res.Data)
				assert.Equal(t, string(format), decodedFormat)
				assert.Equal(t, size.Width, cfg.Width)
				assert.Equal(t, size.Height, cfg.Height)
			})
		}
	}
}

func TestLilliputEncodeSizeBudget(t *testing.T) {
	enc := newLilliputEncoder()
	src := noisyPNG(t, "noise.png", 160, 160)
	size := models.SizeSpec{Width: 160, Height: 160}

	for _, format := range []models.Format{models.FormatJPEG, models.FormatWebP} {
		t.Run(string(format), func(t *testing.T) {
			res, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
				Quality:          models.QualityHigh,
				Format:           format,
				MaxFileSizeBytes: 1,
			})
			require.NoError(t, err)

			assert.Equal(t, 0.1, res.Quality)
			assert.Equal(t, 9, res.Attempts)

			generous, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
				Quality:          models.QualityMedium,
				Format:           format,
				MaxFileSizeBytes: 10 << 20,
			})
			require.NoError(t, err)

			assert.Equal(t, 0.7, generous.Quality)
			assert.Equal(t, 1, generous.Attempts)
			assert.LessOrEqual(t, len(generous.Data), 10<<20)
		})
	}
}

func TestLilliputEncodeIsRepeatable(t *testing.T) {
	enc := newLilliputEncoder()
	src := noisyPNG(t, "photo.png", 50, 50)
	size := models.SizeSpec{Width: 25, Height: 40}
	cfg := models.ProcessingConfig{Quality: models.QualityLow, Format: models.FormatJPEG}

	first, err := enc.Encode(context.Background(), src, size, cfg)
	require.NoError(t, err)
	second, err := enc.Encode(context.Background(), src, size, cfg)
	require.NoError(t, err)

	firstCfg, firstFormat := decodedConfig(t, first.Data)
	secondCfg, secondFormat := decodedConfig(t, second.Data)
	assert.Equal(t, firstFormat, secondFormat)
	assert.Equal(t, firstCfg.Width, secondCfg.Width)
	assert.Equal(t, firstCfg.Height, secondCfg.Height)
}

func TestLilliputEncodeErrors(t *testing.T) {
	enc := newLilliputEncoder()
	src := noisyPNG(t, "photo.png", 8, 8)
	cfg := models.ProcessingConfig{Quality: models.QualityHigh, Format: models.FormatPNG}

	_, err := enc.Encode(context.Background(), src, models.SizeSpec{Width: 0, Height: 0}, cfg)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = enc.Encode(context.Background(), src, models.SizeSpec{Width: 4, Height: 4}, models.ProcessingConfig{
		Format: models.Format("avif"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	garbage := models.SourceImage{Name: "notes.txt", Data: []byte("definitely not pixels")}
	_, err = enc.Encode(context.Background(), garbage, models.SizeSpec{Width: 4, Height: 4}, cfg)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestLilliputEncodeWebP(t *testing.T) {
	enc := newLilliputEncoder()
	src := noisyPNG(t, "photo.png", 64, 64)
	size := models.SizeSpec{Width: 32, Height: 32}

	res, err := enc.Encode(context.Background(), src, size, models.ProcessingConfig{
		Quality: models.QualityHigh,
		Format:  models.FormatWebP,
	})
	require.NoError(t, err)

	cfg, format := decodedConfig(t, res.Data)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
	assert.Equal(t, 0.9, res.Quality)
	assert.Equal(t, 1, res.Attempts)
}
