package eyes

import (
	"errors"
	"image"
)

// Extractor measures eye areas on a single half-frame. Implementations must
// be pure and synchronous; the splitter calls them once per frame per side.
type Extractor interface {
	Measure(frame *image.Gray) (totalArea, eyeArea float64, err error)
}

// ThresholdExtractor is the built-in extractor: it reports the frame area and
// the count of pixels darker than the configured luminance cutoff. The real
// measurement algorithm can be swapped in behind the Extractor interface.
type ThresholdExtractor struct {
	Threshold uint8
}

// Measure implements Extractor.
func (e ThresholdExtractor) Measure(frame *image.Gray) (float64, float64, error) {
	if frame == nil {
		return 0, 0, errors.New("nil frame")
	}
	bounds := frame.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return 0, 0, errors.New("empty frame")
	}

	dark := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		rowStart := frame.PixOffset(bounds.Min.X, y)
		row := frame.Pix[rowStart : rowStart+width]
		for _, v := range row {
			if v < e.Threshold {
				dark++
			}
		}
	}
	return float64(width * height), float64(dark), nil
}
