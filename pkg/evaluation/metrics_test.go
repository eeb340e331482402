package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_PerfectPredictions(t *testing.T) {
	m := Compute([]Sample{
		{Expected: 250, Actual: 250},
		{Expected: 710, Actual: 710},
	})

	assert.Equal(t, 2, m.Count)
	assert.Zero(t, m.MAE)
	assert.Zero(t, m.RMSE)
	assert.Zero(t, m.MAPE)
	assert.Equal(t, 100.0, m.Within10Pct)
	assert.Equal(t, 100.0, m.Within20Pct)
}

func TestCompute_MixedErrors(t *testing.T) {
	m := Compute([]Sample{
		{Expected: 100, Actual: 105}, // 5% off
		{Expected: 200, Actual: 230}, // 15% off
		{Expected: 400, Actual: 300}, // 25% off
	})

	assert.Equal(t, 3, m.Count)
	// |5| + |30| + |100| over 3
	assert.InDelta(t, 45.0, m.MAE, 1e-9)
	// sqrt((25 + 900 + 10000) / 3)
	assert.InDelta(t, 60.3462, m.RMSE, 1e-3)
	// (5 + 15 + 25) / 3
	assert.InDelta(t, 15.0, m.MAPE, 1e-9)
	assert.InDelta(t, 100.0/3, m.Within10Pct, 1e-9)
	assert.InDelta(t, 200.0/3, m.Within20Pct, 1e-9)
}

func TestCompute_ZeroExpectedExcludedFromRelative(t *testing.T) {
	m := Compute([]Sample{
		{Expected: 0, Actual: 50},
		{Expected: 100, Actual: 100},
	})

	assert.Equal(t, 2, m.Count)
	assert.InDelta(t, 25.0, m.MAE, 1e-9)
	assert.Zero(t, m.MAPE, "zero-expected sample must not divide by zero")
	assert.Equal(t, 100.0, m.Within10Pct)
}

func TestCompute_Empty(t *testing.T) {
	m := Compute(nil)
	assert.Zero(t, m)
}
