package scoring

import (
	"context"
	"image"

	xdraw "golang.org/x/image/draw"
)

// WorkingResolution is the square input size the oracle expects. Every image
// is force-resized to this before inference to match the training
// preprocessing; skipping it skews the output distribution.
const WorkingResolution = 512

// Engine is the scoring oracle: it maps a prepared image to four normalized
// [0,1] outputs. Implementations must be safe for concurrent use.
type Engine interface {
	// Infer runs one inference. The image is already at WorkingResolution.
	Infer(ctx context.Context, img image.Image) ([NumDimensions]float64, error)
	// Ready reports whether the engine can serve inferences right now.
	Ready() bool
}

// Score runs the full inference path for one image: resize to the working
// resolution, call the engine, postprocess into bounded quantized scores.
func Score(ctx context.Context, e Engine, img image.Image) (ScoreSet, error) {
	raw, err := e.Infer(ctx, PrepareInput(img))
	if err != nil {
		return ScoreSet{}, err
	}
	return Postprocess(raw), nil
}

// PrepareInput force-resizes an image to WorkingResolution x WorkingResolution.
// Aspect ratio is deliberately not preserved; the model was trained on
// square-stretched frames.
func PrepareInput(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, WorkingResolution, WorkingResolution))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
