package app

import "slices"

// HistogramBin counts scores in [Lower, Upper). The last bin also holds
// scores equal to its Upper bound.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram spreads vals over bins equal-width bins spanning their range.
// When every value is the same the range is widened by 0.5 on each side.
func Histogram(vals []float64, bins int) []HistogramBin {
	if len(vals) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := slices.Min(vals), slices.Max(vals)
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)

	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
