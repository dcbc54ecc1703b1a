package face

import "math"

// Distance returns the Euclidean distance between two embeddings,
// accumulated in float64. Embeddings of different length are infinitely far
// apart.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
