// Package cache turns design requests into canonical, quantized cache keys so
// that semantically equivalent requests collide on the same cache entry.
package cache

import (
	"math"
	"sort"
	"strings"

	api "github.com/tradewatt/designer/api/v1alpha1"
)

// Bucket widths. Two requests whose dimensions all fall into the same bucket
// produce identical canonical keys. Power rounds to the nearest bucket,
// length floors to its bucket, Ze rounds to the nearest 0.05 ohm; the mix is
// what makes adjacent real-world readings (9480 vs 9500 W, 17 vs 18 m,
// 0.34 vs 0.35 ohm) land on the same key.
const (
	PowerBucketW  = 500
	LengthBucketM = 5
	ZeBucketOhms  = 0.05
)

// CanonicalCircuit is the quantized form of one requested circuit.
type CanonicalCircuit struct {
	LoadType string  `json:"loadType"`
	PowerW   float64 `json:"powerW"`
	LengthM  float64 `json:"lengthM"`
	VoltageV int     `json:"voltageV"`
	Phases   string  `json:"phases"`
}

// CanonicalSupply is the quantized shared supply context.
type CanonicalSupply struct {
	VoltageV int     `json:"voltageV"`
	Phases   string  `json:"phases"`
	Ze       float64 `json:"ze"`
	Earthing string  `json:"earthing"`
}

// CanonicalKey is the order-independent, quantization-tolerant representation
// of a design request. It is what gets hashed and what gets stored alongside
// the cache entry for audit.
type CanonicalKey struct {
	Circuits []CanonicalCircuit `json:"circuits"`
	Supply   CanonicalSupply    `json:"supply"`
}

// Normalize produces the canonical key of a request. Categorical fields are
// lower-cased and trimmed, continuous fields are quantized to their bucket,
// and circuits are sorted so input order never affects the key.
func Normalize(req api.DesignRequest) CanonicalKey {
	circuits := make([]CanonicalCircuit, 0, len(req.Circuits))
	for _, c := range req.Circuits {
		circuits = append(circuits, CanonicalCircuit{
			LoadType: canonicalString(c.LoadType),
			PowerW:   roundToBucket(c.PowerW, PowerBucketW),
			LengthM:  floorToBucket(c.LengthM, LengthBucketM),
			VoltageV: c.VoltageV,
			Phases:   canonicalString(c.Phases),
		})
	}

	sort.Slice(circuits, func(i, j int) bool {
		a, b := circuits[i], circuits[j]
		if a.LoadType != b.LoadType {
			return a.LoadType < b.LoadType
		}
		if a.PowerW != b.PowerW {
			return a.PowerW < b.PowerW
		}
		return a.LengthM < b.LengthM
	})

	return CanonicalKey{
		Circuits: circuits,
		Supply: CanonicalSupply{
			VoltageV: req.Supply.VoltageV,
			Phases:   canonicalString(req.Supply.Phases),
			Ze:       roundToBucket(req.Supply.Ze, ZeBucketOhms),
			Earthing: canonicalString(req.Supply.Earthing),
		},
	}
}

func canonicalString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func roundToBucket(v, bucket float64) float64 {
	// a final round kills float artifacts like 0.35000000000000003
	return math.Round(math.Round(v/bucket)*bucket*1e6) / 1e6
}

func floorToBucket(v, bucket float64) float64 {
	return math.Round(math.Floor(v/bucket)*bucket*1e6) / 1e6
}
