package retrieval

import "math"

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1]. ok is false
// when the vectors differ in length, are empty, either has zero norm, or the result
// is not finite (NaN or Inf components).
func Cosine(a, b []float32) (score float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	score = dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, score)), true
}
