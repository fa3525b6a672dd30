//go:build gocv
// +build gocv

package detector

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/detection"
)

const (
	inputSize    = 640
	nmsThreshold = 0.45
)

// DNNDetector runs a YOLO-family network through the OpenCV DNN module.
type DNNDetector struct {
	net       gocv.Net
	classes   []string
	threshold float64
}

// New loads the network and class labels configured in settings.
func New(settings *conf.Settings) (Detector, error) {
	if _, err := os.Stat(settings.Detector.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", settings.Detector.ModelPath)
	}

	classes, err := loadClasses(settings.Detector.ClassesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(settings.Detector.ModelPath, settings.Detector.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", settings.Detector.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	d := &DNNDetector{
		net:       net,
		classes:   classes,
		threshold: settings.Detector.ConfidenceThreshold,
	}
	return Serialize(d), nil
}

func loadClasses(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening classes file: %w", err)
	}
	defer file.Close()

	var classes []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		classes = append(classes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading classes file: %w", err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("classes file %s is empty", path)
	}
	return classes, nil
}

// Detect decodes the image, runs a forward pass and converts the network
// output into raw detections in source pixel coordinates.
func (d *DNNDetector) Detect(ctx context.Context, imageData []byte) ([]detection.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable(err)
	}

	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil {
		return nil, Unavailable(fmt.Errorf("failed to decode image: %w", err))
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, Unavailable(fmt.Errorf("decoded image is empty"))
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, mat.Cols(), mat.Rows()), nil
}

// parseOutput walks the YOLO output tensor, keeps boxes above the confidence
// threshold and applies non-maximum suppression before scaling boxes back to
// source pixel space.
func (d *DNNDetector) parseOutput(output gocv.Mat, srcW, srcH int) []detection.RawDetection {
	// Output layout is [1, 4+numClasses, numAnchors]; transpose to rows of
	// [cx, cy, w, h, class scores...].
	rows := output.Total() / (4 + len(d.classes))
	reshaped := output.Reshape(1, 4+len(d.classes))
	defer reshaped.Close()
	transposed := reshaped.T()
	defer transposed.Close()

	scaleX := float32(srcW) / float32(inputSize)
	scaleY := float32(srcH) / float32(inputSize)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < rows; i++ {
		bestScore := float32(0)
		bestClass := -1
		for c := 0; c < len(d.classes); c++ {
			score := transposed.GetFloatAt(i, 4+c)
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestClass < 0 || float64(bestScore) < d.threshold {
			continue
		}

		cx := transposed.GetFloatAt(i, 0) * scaleX
		cy := transposed.GetFloatAt(i, 1) * scaleY
		w := transposed.GetFloatAt(i, 2) * scaleX
		h := transposed.GetFloatAt(i, 3) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return []detection.RawDetection{}
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(d.threshold), nmsThreshold)
	dets := make([]detection.RawDetection, 0, len(keep))
	for _, idx := range keep {
		box := boxes[idx]
		dets = append(dets, detection.RawDetection{
			Label:      d.classes[classIDs[idx]],
			Confidence: float64(scores[idx]),
			X1:         box.Min.X,
			Y1:         box.Min.Y,
			X2:         box.Max.X,
			Y2:         box.Max.Y,
		})
	}
	return dets
}

// Close releases the network resources.
func (d *DNNDetector) Close() error {
	return d.net.Close()
}
