package detection

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalanapp/dalan-go/internal/errors"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestAnnotateDrawsBoxes(t *testing.T) {
	t.Parallel()

	src := testJPEG(t, 640, 480)
	dets := []RawDetection{
		{Label: "alligator", Confidence: 0.9, X1: 100, Y1: 100, X2: 300, Y2: 250},
	}

	out, err := Annotate(src, dets)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())

	// Box edge pixels should be predominantly the class color (red),
	// allowing for JPEG compression artifacts.
	r, g, b, _ := img.At(200, 101).RGBA()
	assert.Greater(t, r>>8, uint32(180), "expected red channel on top edge")
	assert.Less(t, g>>8, uint32(120))
	assert.Less(t, b>>8, uint32(120))
}

func TestAnnotateDoesNotMutateSource(t *testing.T) {
	t.Parallel()

	src := testJPEG(t, 320, 240)
	orig := make([]byte, len(src))
	copy(orig, src)

	_, err := Annotate(src, []RawDetection{
		{Label: "pothole", Confidence: 0.5, X1: 10, Y1: 10, X2: 100, Y2: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, orig, src)
}

func TestAnnotateDeterministic(t *testing.T) {
	t.Parallel()

	src := testJPEG(t, 320, 240)
	dets := []RawDetection{
		{Label: "transverse", Confidence: 0.7, X1: 20, Y1: 30, X2: 200, Y2: 180},
		{Label: "unmapped-class", Confidence: 0.2, X1: 5, Y1: 5, X2: 60, Y2: 60},
	}

	first, err := Annotate(src, dets)
	require.NoError(t, err)
	second, err := Annotate(src, dets)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnnotateDecodesPNG(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, err := Annotate(buf.Bytes(), nil)
	require.NoError(t, err)

	// Output is always JPEG regardless of input format.
	_, err = jpeg.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestAnnotateInvalidImage(t *testing.T) {
	t.Parallel()

	out, err := Annotate([]byte("not an image"), nil)
	require.Error(t, err)
	assert.Nil(t, out)

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, string(errors.CategoryImageDecode), ee.GetCategory())
}

func TestScalingFloors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, lineThickness(100))
	assert.Equal(t, 2, lineThickness(640))
	assert.GreaterOrEqual(t, lineThickness(4000), 2)
	assert.Greater(t, lineThickness(4000), lineThickness(640))

	assert.Equal(t, 1, labelScale(100))
	assert.Greater(t, labelScale(4000), labelScale(640))
}
