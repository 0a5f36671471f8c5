package quality

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/model"
)

// Validate projects the model's raw dimension map onto the fixed schema.
// Every schema dimension is present in the result and every score lies in
// [0,100]. Malformed or missing entries fall back to the neutral default.
// When several raw keys normalize to the same dimension, the key spelled
// exactly like the schema name wins, then the first key in sorted order.
func Validate(raw map[string]any) map[model.DimensionName]model.DimensionScore {
	supplied := make(map[string]any, len(raw))
	exact := make(map[string]bool, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		nk := model.NormalizeDimensionKey(k)
		d, known := model.LookupDimension(k)
		isExact := known && string(d) == k
		if _, seen := supplied[nk]; seen && (exact[nk] || !isExact) {
			continue
		}
		supplied[nk] = raw[k]
		exact[nk] = isExact
	}

	result := make(map[model.DimensionName]model.DimensionScore, len(model.Dimensions))
	for _, name := range model.Dimensions {
		v, ok := supplied[model.NormalizeDimensionKey(string(name))]
		if !ok {
			result[name] = model.DefaultDimensionScoreValue()
			continue
		}
		result[name] = validateOne(v)
	}
	return result
}

func validateOne(v any) model.DimensionScore {
	ds := model.DefaultDimensionScoreValue()

	switch t := v.(type) {
	case map[string]any:
		if score, ok := toScore(lookupField(t, "score")); ok {
			ds.Score = score
		}
		if ev, ok := lookupField(t, "evidence").(string); ok && strings.TrimSpace(ev) != "" {
			ds.Evidence = ev
		}
	default:
		// bare number in place of the {score, evidence} object
		if score, ok := toScore(t); ok {
			ds.Score = score
		}
	}
	return ds
}

func lookupField(m map[string]any, name string) any {
	if v, ok := m[name]; ok {
		return v
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return m[k]
		}
	}
	return nil
}

func toScore(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}

	if math.IsNaN(f) {
		return 0, false
	}
	return clamp(int(math.Round(math.Max(math.Min(f, math.MaxInt32), math.MinInt32)))), true
}

func clamp(score int) int {
	if score < model.MinDimensionScore {
		return model.MinDimensionScore
	}
	if score > model.MaxDimensionScore {
		return model.MaxDimensionScore
	}
	return score
}
