package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrUndecodable wraps every input-data failure: the caller gets one error
// kind for corrupt or unsupported images, never a malformed output.
var ErrUndecodable = errors.New("undecodable image")

const (
	jpegQuality = 95

	// Square bucket for sources with a near-1.0 aspect ratio.
	squareSize     = 1024
	squareAspectLo = 0.85
	squareAspectHi = 1.15

	// Portrait bucket for everything else.
	portraitWidth  = 832
	portraitHeight = 1216
)

// Result is the canonical image produced by Normalize: an exact-geometry,
// three-channel JPEG.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize converts arbitrary input imagery into one of the two canonical
// geometries. Sources large enough in both dimensions are center-cropped to
// the target aspect and then resized; smaller sources are resized directly,
// accepting the upscale. Output is deterministic for identical input bytes.
func (n *Normalizer) Normalize(raw []byte) (*Result, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUndecodable)
	}

	targetWidth, targetHeight := targetSize(width, height)

	var out *image.NRGBA
	if width >= targetWidth && height >= targetHeight {
		cropWidth, cropHeight := cropSize(width, height, float64(targetWidth)/float64(targetHeight))
		out = imaging.CropCenter(img, cropWidth, cropHeight)
		out = imaging.Resize(out, targetWidth, targetHeight, imaging.Lanczos)
	} else {
		out = imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return &Result{
		Data:   buf.Bytes(),
		Width:  targetWidth,
		Height: targetHeight,
	}, nil
}

// targetSize picks the aspect bucket: near-square sources get the square
// geometry, everything else the portrait one.
func targetSize(width, height int) (int, int) {
	aspect := float64(width) / float64(height)
	if aspect >= squareAspectLo && aspect <= squareAspectHi {
		return squareSize, squareSize
	}
	return portraitWidth, portraitHeight
}

// cropSize computes the largest centered region matching targetAspect: crop
// width if the source is wider than the target, height if it is taller.
func cropSize(width, height int, targetAspect float64) (int, int) {
	currentAspect := float64(width) / float64(height)
	if currentAspect > targetAspect {
		return int(float64(height) * targetAspect), height
	}
	return width, int(float64(width) / targetAspect)
}
