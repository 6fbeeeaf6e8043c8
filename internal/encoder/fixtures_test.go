package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giobyte8/imgbatch/internal/models"
)

// noisyPNG builds a source image with enough entropy for lossy quality
// levels to produce clearly different sizes.
func noisyPNG(t *testing.T, name string, width, height int) models.SourceImage {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8((x * 255) / width),
				B: uint8((y * 255) / height),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return models.SourceImage{Name: name, Data: buf.Bytes()}
}

func decodedConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg, format
}
