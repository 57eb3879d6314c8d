package nutrition

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
)

// ComputeDailyTotals reduces the day's meal collection to one totals row.
// It never panics and never produces NaN: a malformed record degrades to a
// zero-valued contribution plus a warning, because this computation runs on
// every view of the home screen and must be total-failure-proof.
func ComputeDailyTotals(meals []Meal) DailyTotals {
	var calories, carbs, protein, fat float64

	for _, meal := range meals {
		if meal.Foods == nil {
			logrus.WithField("meal", meal.ID).Warn("meal found without valid foods list")
			continue
		}
		for _, food := range meal.Foods {
			if food == nil {
				logrus.WithField("meal", meal.ID).Warn("invalid food item found in meal")
				continue
			}
			// Calories and fat exist under two names depending on whether the
			// item was logged manually or came from a scan.
			calories += food.Number("calories", "kcal")
			carbs += food.Number("carbs")
			protein += food.Number("protein")
			fat += food.Number("fat", "fats")
		}
	}

	return DailyTotals{
		Calories: round(calories),
		Carbs:    round(carbs),
		Protein:  round(protein),
		Fat:      round(fat),
	}
}

// Number resolves the first present key to a float64, trying keys in priority
// order. Missing, non-numeric and NaN values all coerce to 0 so they can
// never corrupt a running total.
func (f Food) Number(keys ...string) float64 {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok || raw == nil {
			continue
		}
		return coerce(raw)
	}
	return 0
}

func coerce(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case float32:
		return coerce(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		return coerce(parsed)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return coerce(parsed)
	}
	return 0
}

func round(x float64) int {
	return int(math.Round(x))
}
