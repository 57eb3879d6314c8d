package nutrition

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Store keys shared with the mobile client's original storage layout.
const (
	FoodListKey        = "foodList"
	FoodListVersionKey = "foodListVersion"
	TodayMealsKey      = "todayMeals"
)

// FoodListVersion marks the seed schema. Bumping it forces a reseed on the
// next startup.
const FoodListVersion = "1.0.0"

// seedFoods is the built-in per-100g food database (per-unit entries keep the
// unit in the name).
var seedFoods = []FoodEntry{
	{ID: "1", Name: "Banana", Kcal: 89, Protein: 1.1, Carbs: 22.8, Fats: 0.3},
	{ID: "2", Name: "Chicken Breast (100g)", Kcal: 165, Protein: 31, Carbs: 0, Fats: 3.6},
	{ID: "3", Name: "Brown Rice (100g)", Kcal: 112, Protein: 2.6, Carbs: 23, Fats: 0.9},
	{ID: "4", Name: "Almonds (28g)", Kcal: 164, Protein: 6, Carbs: 6, Fats: 14},
	{ID: "5", Name: "Egg (1 large)", Kcal: 78, Protein: 6.3, Carbs: 0.6, Fats: 5.3},
	{ID: "6", Name: "Apple (100g)", Kcal: 52, Protein: 0.3, Carbs: 14, Fats: 0.2},
	{ID: "7", Name: "Salmon (100g)", Kcal: 208, Protein: 20, Carbs: 0, Fats: 13},
	{ID: "8", Name: "Oats (100g)", Kcal: 389, Protein: 16.9, Carbs: 66.3, Fats: 6.9},
	{ID: "9", Name: "Broccoli (100g)", Kcal: 34, Protein: 2.8, Carbs: 6.6, Fats: 0.4},
	{ID: "10", Name: "Greek Yogurt (100g)", Kcal: 59, Protein: 10, Carbs: 3.6, Fats: 0.4},
}

// EnsureFoodList writes the seed food database to the store unless the stored
// schema-version marker already matches.
func EnsureFoodList(ctx context.Context, store Store) error {
	var existing string
	found, err := store.GetJSON(ctx, FoodListVersionKey, &existing)
	if err != nil {
		return err
	}
	if found && existing == FoodListVersion {
		logrus.Debug("food list already initialized")
		return nil
	}

	if err := store.PutJSON(ctx, FoodListKey, seedFoods); err != nil {
		return err
	}
	if err := store.PutJSON(ctx, FoodListVersionKey, FoodListVersion); err != nil {
		return err
	}
	logrus.WithField("version", FoodListVersion).Info("food list initialized and saved")
	return nil
}
