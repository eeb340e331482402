// Package jsonutil tolerates the loose typing of LLM JSON output.
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleFloat converts a raw JSON value to a float64, handling cases
// where LLMs return numeric strings ("150" or "150g") instead of numbers.
// The second return is false when the value is absent, null, or not
// numeric.
func FlexibleFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal, true
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return 0, false
	}
	strVal = strings.TrimSpace(strVal)
	strVal = strings.TrimRight(strVal, "gG ")
	if strVal == "" {
		return 0, false
	}
	numVal, err := strconv.ParseFloat(strVal, 64)
	if err != nil {
		return 0, false
	}
	return numVal, true
}
