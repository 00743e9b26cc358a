package scoring

import (
	"math"
)

// NumDimensions is the oracle's fixed output cardinality.
const NumDimensions = 4

// Display names of the four pathology dimensions, in oracle output order.
const (
	DimensionArchitecture = "Pancreatic Architecture"
	DimensionAtrophy      = "Glandular Atrophy"
	DimensionComplexes    = "Pseudotubular Complexes"
	DimensionFibrosis     = "Fibrosis"
)

// MaxScores are the per-dimension upper bounds, in oracle output order.
// They must match the maxima the model was trained against.
var MaxScores = [NumDimensions]float64{4.0, 3.0, 3.0, 4.0}

// DimensionNames in oracle output order.
var DimensionNames = [NumDimensions]string{
	DimensionArchitecture,
	DimensionAtrophy,
	DimensionComplexes,
	DimensionFibrosis,
}

// ScoreSet holds the four quantized dimension scores plus the derived total.
type ScoreSet struct {
	Architecture float64
	Atrophy      float64
	Complexes    float64
	Fibrosis     float64
	Total        float64
}

// Postprocess turns the oracle's normalized [0,1] outputs into persisted
// scores: scale by the per-dimension maxima, clamp into [0, max], quantize to
// quarter units (the model's training granularity), then total to 2 decimals.
func Postprocess(raw [NumDimensions]float64) ScoreSet {
	var vals [NumDimensions]float64
	for i, r := range raw {
		vals[i] = QuantizeQuarter(Clamp(r*MaxScores[i], 0, MaxScores[i]))
	}
	return ScoreSet{
		Architecture: vals[0],
		Atrophy:      vals[1],
		Complexes:    vals[2],
		Fibrosis:     vals[3],
		Total:        RoundTotal(vals[0] + vals[1] + vals[2] + vals[3]),
	}
}

// QuantizeQuarter rounds to the nearest 0.25.
func QuantizeQuarter(x float64) float64 {
	return math.Round(x*4) / 4
}

// RoundTotal rounds a score total to 2 decimal places.
func RoundTotal(x float64) float64 {
	return math.Round(x*100) / 100
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// MaxFor returns the upper bound for a dimension display name.
func MaxFor(name string) (float64, bool) {
	for i, n := range DimensionNames {
		if n == name {
			return MaxScores[i], true
		}
	}
	return 0, false
}

// ToMap renders the set the way API responses carry scores, keyed by display
// name with the derived "Total".
func (s ScoreSet) ToMap() map[string]float64 {
	return map[string]float64{
		DimensionArchitecture: s.Architecture,
		DimensionAtrophy:      s.Atrophy,
		DimensionComplexes:    s.Complexes,
		DimensionFibrosis:     s.Fibrosis,
		"Total":               s.Total,
	}
}
