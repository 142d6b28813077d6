package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// zScore standardizes xs with the population mean and standard deviation.
// A zero or undefined deviation returns an unchanged copy.
func zScore(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	if len(xs) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(xs, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / std
	}
	return out
}

// pearson is the sample correlation of x and y, 0 when undefined.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func meanAbsError(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	total := 0.0
	for i := range pred {
		total += math.Abs(pred[i] - actual[i])
	}
	return total / float64(len(pred))
}

func rootMeanSquaredError(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	total := 0.0
	for i := range pred {
		d := pred[i] - actual[i]
		total += d * d
	}
	return math.Sqrt(total / float64(len(pred)))
}
