package detection

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // register PNG decoding

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dalanapp/dalan-go/internal/errors"
)

const jpegQuality = 95

// classColors maps crack type labels to box colors. Unmapped labels fall
// back to white.
var classColors = map[string]color.RGBA{
	"alligator":    {R: 255, A: 255},
	"longitudinal": {G: 255, A: 255},
	"transverse":   {B: 255, A: 255},
	"pothole":      {R: 255, G: 255, A: 255},
}

var defaultColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Annotate draws detection boxes and class labels onto a copy of the source
// image and returns the result as JPEG bytes. The source buffer is never
// modified. Line thickness and label size scale with image width so the
// annotations stay legible at any resolution.
func Annotate(imageData []byte, dets []RawDetection) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryImageDecode).
			Context("image_bytes", len(imageData)).
			Build()
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	thickness := lineThickness(bounds.Dx())
	scale := labelScale(bounds.Dx())

	for i := range dets {
		col := classColor(dets[i].Label)
		box := image.Rect(dets[i].X1, dets[i].Y1, dets[i].X2, dets[i].Y2)
		drawBox(canvas, box, col, thickness)
		drawLabel(canvas, dets[i].Label, box.Min.X, box.Min.Y, scale)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryImageDecode).
			Build()
	}
	return buf.Bytes(), nil
}

func classColor(label string) color.RGBA {
	if col, ok := classColors[label]; ok {
		return col
	}
	return defaultColor
}

// lineThickness grows with image width but never drops below 2px.
func lineThickness(width int) int {
	t := width / 320
	if t < 2 {
		t = 2
	}
	return t
}

// labelScale grows with image width but never drops below 1.
func labelScale(width int) int {
	s := width / 640
	if s < 1 {
		s = 1
	}
	return s
}

// drawBox strokes the rectangle outline with the given thickness, clipped to
// the canvas bounds.
func drawBox(canvas *image.RGBA, box image.Rectangle, col color.RGBA, thickness int) {
	outer := box.Intersect(canvas.Bounds())
	if outer.Empty() {
		return
	}

	top := image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+thickness)
	bottom := image.Rect(box.Min.X, box.Max.Y-thickness, box.Max.X, box.Max.Y)
	left := image.Rect(box.Min.X, box.Min.Y, box.Min.X+thickness, box.Max.Y)
	right := image.Rect(box.Max.X-thickness, box.Min.Y, box.Max.X, box.Max.Y)

	for _, edge := range []image.Rectangle{top, bottom, left, right} {
		draw.Draw(canvas, edge.Intersect(canvas.Bounds()), &image.Uniform{col}, image.Point{}, draw.Src)
	}
}

// drawLabel renders the label above the box top-left corner on a black
// backing strip for readability. The basicfont face is rendered at 1x and
// magnified with nearest-neighbour scaling to keep output deterministic.
func drawLabel(canvas *image.RGBA, label string, x, y, scale int) {
	if label == "" {
		return
	}

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, label).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	// Render at 1x on a black strip with a small margin.
	const margin = 2
	strip := image.NewRGBA(image.Rect(0, 0, textWidth+2*margin, textHeight+2*margin))
	draw.Draw(strip, strip.Bounds(), image.Black, image.Point{}, draw.Src)
	drawer := &font.Drawer{
		Dst:  strip,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(margin, margin+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(label)

	dstW := strip.Bounds().Dx() * scale
	dstH := strip.Bounds().Dy() * scale
	dst := image.Rect(x, y-dstH, x+dstW, y)
	if dst.Min.Y < canvas.Bounds().Min.Y {
		// Not enough room above the box, draw inside it instead.
		dst = image.Rect(x, y, x+dstW, y+dstH)
	}

	xdraw.NearestNeighbor.Scale(canvas, dst.Intersect(canvas.Bounds()), strip, strip.Bounds(), xdraw.Over, nil)
}
