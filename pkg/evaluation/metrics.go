// Package evaluation scores engine answers against a labeled dataset.
package evaluation

import "math"

// Sample pairs an expected value with the engine's answer for one query.
type Sample struct {
	Expected float64
	Actual   float64
}

// Metrics summarizes prediction accuracy over a sample set. MAPE and the
// within-percent accuracies are percentages. Samples with a zero expected
// value are excluded from the relative metrics.
type Metrics struct {
	Count       int     `json:"count"`
	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
	MAPE        float64 `json:"mape"`
	Within10Pct float64 `json:"within_10_pct"`
	Within20Pct float64 `json:"within_20_pct"`
}

// Compute calculates accuracy metrics over the samples. An empty input
// yields a zero Metrics.
func Compute(samples []Sample) Metrics {
	if len(samples) == 0 {
		return Metrics{}
	}

	var absSum, sqSum float64
	var pctSum float64
	var pctCount, within10, within20 int

	for _, s := range samples {
		diff := s.Actual - s.Expected
		absSum += math.Abs(diff)
		sqSum += diff * diff

		if s.Expected != 0 {
			relErr := math.Abs(diff) / math.Abs(s.Expected)
			pctSum += relErr * 100
			pctCount++
			if relErr <= 0.10 {
				within10++
			}
			if relErr <= 0.20 {
				within20++
			}
		}
	}

	m := Metrics{
		Count: len(samples),
		MAE:   absSum / float64(len(samples)),
		RMSE:  math.Sqrt(sqSum / float64(len(samples))),
	}
	if pctCount > 0 {
		m.MAPE = pctSum / float64(pctCount)
		m.Within10Pct = float64(within10) / float64(pctCount) * 100
		m.Within20Pct = float64(within20) / float64(pctCount) * 100
	}
	return m
}
