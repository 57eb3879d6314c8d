package nutrition

type (
	// Food is one line-item inside a meal. It stays a loose map because two
	// upstream shapes were never unified: manually logged items carry
	// "calories"/"fat", scanned items carry "kcal"/"fats". The ambiguity is
	// resolved at the aggregation boundary, not propagated deeper.
	Food map[string]interface{}

	// Meal is a logged meal owned by the day's collection. The collection is
	// persisted wholesale on every mutation.
	Meal struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Time  string `json:"time"`
		Foods []Food `json:"foods"`
	}

	// FoodEntry is a food database record with macros per 100 grams.
	FoodEntry struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Kcal    float64 `json:"kcal"`
		Protein float64 `json:"protein"`
		Carbs   float64 `json:"carbs"`
		Fats    float64 `json:"fats"`
	}

	// DailyTotals is derived on demand from the current meal collection and
	// never stored.
	DailyTotals struct {
		Calories int `json:"calories"`
		Carbs    int `json:"carbs"`
		Protein  int `json:"protein"`
		Fat      int `json:"fat"`
	}
)

// Scaled returns a line-item for quantity grams of the entry, macros scaled
// relative to the 100-gram reference.
func (e FoodEntry) Scaled(grams float64) Food {
	factor := grams / 100
	return Food{
		"id":       e.ID,
		"name":     e.Name,
		"quantity": grams,
		"calories": e.Kcal * factor,
		"protein":  e.Protein * factor,
		"carbs":    e.Carbs * factor,
		"fat":      e.Fats * factor,
	}
}
