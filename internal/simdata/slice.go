package simdata

import "gonum.org/v1/gonum/mat"

// SelectCols returns the columns of m listed in inds, in that order. A nil
// inds returns m unchanged; out of range indices are skipped.
func SelectCols(m *mat.Dense, inds []int) *mat.Dense {
	if m == nil || inds == nil {
		return m
	}
	r, c := m.Dims()
	keep := make([]int, 0, len(inds))
	for _, j := range inds {
		if j >= 0 && j < c {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	out := mat.NewDense(r, len(keep), nil)
	for k, j := range keep {
		for i := 0; i < r; i++ {
			out.Set(i, k, m.At(i, j))
		}
	}
	return out
}

// SelectInds returns the entries of v listed in inds, in that order. A nil
// inds returns v unchanged; out of range indices are skipped.
func SelectInds(v []float64, inds []int) []float64 {
	if v == nil || inds == nil {
		return v
	}
	out := make([]float64, 0, len(inds))
	for _, i := range inds {
		if i >= 0 && i < len(v) {
			out = append(out, v[i])
		}
	}
	return out
}
