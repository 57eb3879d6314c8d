package nutrition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDailyTotals(t *testing.T) {
	t.Run("EmptyCollection", func(t *testing.T) {
		totals := ComputeDailyTotals([]Meal{})
		assert.Equal(t, DailyTotals{}, totals)
	})

	t.Run("NilCollection", func(t *testing.T) {
		totals := ComputeDailyTotals(nil)
		assert.Equal(t, DailyTotals{}, totals)
	})

	t.Run("SumsAndRounds", func(t *testing.T) {
		meals := []Meal{
			{ID: "m1", Foods: []Food{
				{"calories": 100.4, "carbs": 10.2, "protein": 5.0, "fat": 2.0},
				{"calories": 50.2, "carbs": 5.1, "protein": 2.5, "fat": 1.0},
			}},
		}
		totals := ComputeDailyTotals(meals)
		assert.Equal(t, DailyTotals{Calories: 151, Carbs: 15, Protein: 8, Fat: 3}, totals)
	})

	t.Run("DualNamingEquivalence", func(t *testing.T) {
		manual := []Meal{{ID: "m1", Foods: []Food{
			{"calories": 165.0, "carbs": 0.0, "protein": 31.0, "fat": 3.6},
		}}}
		scanned := []Meal{{ID: "m1", Foods: []Food{
			{"kcal": 165.0, "carbs": 0.0, "protein": 31.0, "fats": 3.6},
		}}}
		assert.Equal(t, ComputeDailyTotals(manual), ComputeDailyTotals(scanned))
	})

	t.Run("CaloriesPreferredOverKcal", func(t *testing.T) {
		meals := []Meal{{ID: "m1", Foods: []Food{
			{"calories": 100.0, "kcal": 999.0},
		}}}
		assert.Equal(t, 100, ComputeDailyTotals(meals).Calories)
	})

	t.Run("MalformedFieldsDegradeToZero", func(t *testing.T) {
		meals := []Meal{{ID: "m1", Foods: []Food{
			{"calories": "not-a-number", "carbs": nil, "protein": map[string]interface{}{}, "fat": math.NaN()},
			{"calories": "250.5", "carbs": 10, "protein": int64(3)},
		}}}
		totals := ComputeDailyTotals(meals)
		assert.Equal(t, DailyTotals{Calories: 251, Carbs: 10, Protein: 3, Fat: 0}, totals)
	})

	t.Run("MealWithoutFoodsIsSkipped", func(t *testing.T) {
		meals := []Meal{
			{ID: "broken"},
			{ID: "ok", Foods: []Food{{"kcal": 52.0}}},
			{ID: "nil-food", Foods: []Food{nil}},
		}
		assert.NotPanics(t, func() {
			totals := ComputeDailyTotals(meals)
			assert.Equal(t, 52, totals.Calories)
		})
	})

	t.Run("NeverNaN", func(t *testing.T) {
		meals := []Meal{{ID: "m1", Foods: []Food{
			{"calories": math.NaN(), "carbs": math.Inf(1), "protein": "NaN", "fat": math.NaN()},
		}}}
		totals := ComputeDailyTotals(meals)
		assert.Equal(t, DailyTotals{}, totals)
	})
}
