//go:build !arm64

package memory

import "github.com/viant/vec/search"

// cosineDistanceWithMagnitude calls the library's exported name for this
// architecture (upstream exports it as CosineDistanceWithMagnitudesNeon off arm64).
func cosineDistanceWithMagnitude(q search.Float32s, v []float32, qMag, vMag float32) float32 {
	return q.CosineDistanceWithMagnitudesNeon(v, qMag, vMag)
}
