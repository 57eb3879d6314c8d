package nutrition

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"foodscan/src/pipeline"
)

type (
	// Store is the string-keyed JSON blob collaborator the meal log persists
	// through. Satisfied by app.BlobStore.
	Store interface {
		GetJSON(ctx context.Context, key string, value interface{}) (bool, error)
		PutJSON(ctx context.Context, key string, value interface{}) error
	}

	// Log manages the day's meal collection. Every mutation rewrites the
	// whole collection snapshot; there is no partial persistence.
	Log struct {
		store Store
		log   *logrus.Entry
	}
)

// ErrMealNotFound is returned when a mutation names an unknown meal.
var ErrMealNotFound = fmt.Errorf("meal not found")

func NewLog(store Store) *Log {
	return &Log{
		store: store,
		log:   logrus.WithField("component", "meal-log"),
	}
}

// Meals loads the current collection. A missing snapshot is an empty day,
// not an error.
func (l *Log) Meals(ctx context.Context) ([]Meal, error) {
	var meals []Meal
	found, err := l.store.GetJSON(ctx, TodayMealsKey, &meals)
	if err != nil {
		return nil, fmt.Errorf("can not load meals: %w", err)
	}
	if !found {
		l.log.Debug("no meals snapshot found, defaulting to empty")
		return []Meal{}, nil
	}
	return meals, nil
}

// Totals computes the daily totals from the current collection.
func (l *Log) Totals(ctx context.Context) (DailyTotals, error) {
	meals, err := l.Meals(ctx)
	if err != nil {
		return DailyTotals{}, err
	}
	return ComputeDailyTotals(meals), nil
}

// AddMeal appends an empty meal and persists the collection.
func (l *Log) AddMeal(ctx context.Context, name, mealTime string) (Meal, error) {
	meals, err := l.Meals(ctx)
	if err != nil {
		return Meal{}, err
	}
	meal := Meal{
		ID:    uuid.NewString(),
		Name:  name,
		Time:  mealTime,
		Foods: []Food{},
	}
	meals = append(meals, meal)
	if err := l.save(ctx, meals); err != nil {
		return Meal{}, err
	}
	return meal, nil
}

// AddFood appends quantity grams of a food database entry to a meal, macros
// scaled relative to the 100-gram reference.
func (l *Log) AddFood(ctx context.Context, mealID string, entry FoodEntry, grams float64) (Meal, error) {
	if grams <= 0 {
		return Meal{}, fmt.Errorf("quantity must be positive, got %v", grams)
	}
	return l.mutate(ctx, mealID, func(meal *Meal) error {
		meal.Foods = append(meal.Foods, entry.Scaled(grams))
		return nil
	})
}

// AddRecognized appends scan results to a meal. Scanned items keep the
// recognition service's field names (kcal/fats); the aggregator resolves the
// two shapes at its boundary.
func (l *Log) AddRecognized(ctx context.Context, mealID string, items []pipeline.FoodItem) (Meal, error) {
	return l.mutate(ctx, mealID, func(meal *Meal) error {
		for _, item := range items {
			meal.Foods = append(meal.Foods, Food{
				"name":     item.Name,
				"quantity": float64(100),
				"kcal":     item.Kcal,
				"protein":  item.Protein,
				"carbs":    item.Carbs,
				"fats":     item.Fats,
			})
		}
		return nil
	})
}

// RemoveFood deletes the line-item at index from a meal.
func (l *Log) RemoveFood(ctx context.Context, mealID string, index int) (Meal, error) {
	return l.mutate(ctx, mealID, func(meal *Meal) error {
		if index < 0 || index >= len(meal.Foods) {
			return fmt.Errorf("no food at index %d", index)
		}
		meal.Foods = append(meal.Foods[:index], meal.Foods[index+1:]...)
		return nil
	})
}

// DeleteMeal removes a meal from the collection and persists it.
func (l *Log) DeleteMeal(ctx context.Context, mealID string) error {
	meals, err := l.Meals(ctx)
	if err != nil {
		return err
	}
	kept := meals[:0]
	for _, meal := range meals {
		if meal.ID != mealID {
			kept = append(kept, meal)
		}
	}
	if len(kept) == len(meals) {
		return ErrMealNotFound
	}
	return l.save(ctx, kept)
}

// FoodList loads the seeded food database.
func (l *Log) FoodList(ctx context.Context) ([]FoodEntry, error) {
	var entries []FoodEntry
	found, err := l.store.GetJSON(ctx, FoodListKey, &entries)
	if err != nil {
		return nil, fmt.Errorf("can not load food list: %w", err)
	}
	if !found {
		return []FoodEntry{}, nil
	}
	return entries, nil
}

// FindFood resolves a food database entry by id.
func (l *Log) FindFood(ctx context.Context, foodID string) (FoodEntry, error) {
	entries, err := l.FoodList(ctx)
	if err != nil {
		return FoodEntry{}, err
	}
	for _, entry := range entries {
		if entry.ID == foodID {
			return entry, nil
		}
	}
	return FoodEntry{}, fmt.Errorf("food %s not found", foodID)
}

func (l *Log) mutate(ctx context.Context, mealID string, apply func(meal *Meal) error) (Meal, error) {
	meals, err := l.Meals(ctx)
	if err != nil {
		return Meal{}, err
	}
	for i := range meals {
		if meals[i].ID != mealID {
			continue
		}
		if err := apply(&meals[i]); err != nil {
			return Meal{}, err
		}
		if err := l.save(ctx, meals); err != nil {
			return Meal{}, err
		}
		return meals[i], nil
	}
	return Meal{}, ErrMealNotFound
}

func (l *Log) save(ctx context.Context, meals []Meal) error {
	if err := l.store.PutJSON(ctx, TodayMealsKey, meals); err != nil {
		return fmt.Errorf("can not save meals: %w", err)
	}
	return nil
}
