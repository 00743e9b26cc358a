package enginelocal

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/scoring"
)

// Parameters is the serialized regression head: a bias plus per-channel
// weights for each score dimension, applied to mean RGB intensities of the
// working-resolution frame. Outputs are normalized [0,1].
type Parameters struct {
	Bias    [scoring.NumDimensions]float64    `json:"bias"`
	Weights [scoring.NumDimensions][3]float64 `json:"weights"`
}

// Engine scores images in-process from parameters loaded off disk. A missing
// or unreadable parameter file leaves the engine constructed but not Ready,
// so the service can come up and report 503 on uploads, matching /health.
type Engine struct {
	log    *logger.Logger
	params *Parameters
}

func New(modelPath string, baseLog *logger.Logger) *Engine {
	log := baseLog.With("engine", "local")
	e := &Engine{log: log}

	b, err := os.ReadFile(modelPath)
	if err != nil {
		log.Warn("Model parameters not found, scoring disabled until restart", "path", modelPath, "error", err)
		return e
	}
	var p Parameters
	if err := json.Unmarshal(b, &p); err != nil {
		log.Error("Failed to parse model parameters", "path", modelPath, "error", err)
		return e
	}
	e.params = &p
	log.Info("Loaded model parameters", "path", modelPath)
	return e
}

func (e *Engine) Ready() bool {
	return e.params != nil
}

func (e *Engine) Infer(ctx context.Context, img image.Image) ([scoring.NumDimensions]float64, error) {
	var out [scoring.NumDimensions]float64
	if e.params == nil {
		return out, fmt.Errorf("model parameters not loaded")
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	means := channelMeans(img)
	for i := 0; i < scoring.NumDimensions; i++ {
		v := e.params.Bias[i]
		for c := 0; c < 3; c++ {
			v += e.params.Weights[i][c] * means[c]
		}
		out[i] = scoring.Clamp(v, 0, 1)
	}
	return out, nil
}

func channelMeans(img image.Image) [3]float64 {
	b := img.Bounds()
	var sum [3]float64
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum[0] += float64(r) / 65535.0
			sum[1] += float64(g) / 65535.0
			sum[2] += float64(bl) / 65535.0
			n++
		}
	}
	if n == 0 {
		return [3]float64{}
	}
	return [3]float64{sum[0] / float64(n), sum[1] / float64(n), sum[2] / float64(n)}
}
