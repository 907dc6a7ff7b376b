package imagemeta

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal(t *testing.T) {
	tests := []struct {
		name          string
		deg, min, sec float64
		negate        bool
		want          float64
	}{
		{"equator", 0, 0, 0, false, 0},
		{"portland", 45, 31, 12, false, 45.52},
		{"south", 33, 51, 54, true, -33.865},
		{"west", 122, 40, 48, true, -122.68},
		{"fractional seconds", 51, 30, 26.64, false, 51.5074},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decimal(tt.deg, tt.min, tt.sec, tt.negate)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// Splitting a decimal degree into DMS and decoding it again must land on the
// original value within floating-point tolerance.
func TestDecimal_RoundTrip(t *testing.T) {
	for _, want := range []float64{0.0001, 12.345678, 45.52, 89.999999, 179.123456} {
		deg := math.Trunc(want)
		rem := (want - deg) * 60
		min := math.Trunc(rem)
		sec := (rem - min) * 60

		got := Decimal(deg, min, sec, false)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestExtractFix_GarbageInput(t *testing.T) {
	fix := ExtractFix(bytes.NewReader([]byte("definitely not an image")))
	assert.Nil(t, fix.Lat)
	assert.Nil(t, fix.Lon)
}

func TestExtractFix_EmptyInput(t *testing.T) {
	fix := ExtractFix(bytes.NewReader(nil))
	assert.Nil(t, fix.Lat)
	assert.Nil(t, fix.Lon)
}

func TestExtractFix_ImageWithoutExif(t *testing.T) {
	fix := ExtractFix(bytes.NewReader(encodeTestImage(t, 4, 4)))
	assert.Nil(t, fix.Lat)
	assert.Nil(t, fix.Lon)
}

func TestDimensions(t *testing.T) {
	w, h, ok := Dimensions(encodeTestImage(t, 6, 3))
	require.True(t, ok)
	assert.Equal(t, int32(6), w)
	assert.Equal(t, int32(3), h)
}

func TestDimensions_Garbage(t *testing.T) {
	_, _, ok := Dimensions([]byte("not an image"))
	assert.False(t, ok)
}

func encodeTestImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}
