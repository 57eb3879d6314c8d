package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"foodscan/src/nutrition"
)

type (
	// MealHandler exposes the day's meal log and the derived totals.
	MealHandler struct {
		mealLog *nutrition.Log
	}

	PostMealBody struct {
		Name string `json:"name"`
		Time string `json:"time"`
	}

	PostFoodBody struct {
		FoodID   string  `json:"food_id"`
		Quantity float64 `json:"quantity"`
	}
)

func NewMealHandler(mealLog *nutrition.Log) *MealHandler {
	return &MealHandler{mealLog: mealLog}
}

func (h *MealHandler) GetMeals(c *gin.Context) {
	meals, err := h.mealLog.Meals(c.Request.Context())
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not load meals: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": meals})
}

func (h *MealHandler) PostMeal(c *gin.Context) {
	var requestBody PostMealBody
	if err := c.BindJSON(&requestBody); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no meal in body"})
		return
	}
	if requestBody.Name == "" {
		requestBody.Name = "New Meal"
	}
	meal, err := h.mealLog.AddMeal(c.Request.Context(), requestBody.Name, requestBody.Time)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not save meal: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": meal})
}

func (h *MealHandler) DeleteMeal(c *gin.Context) {
	if err := h.mealLog.DeleteMeal(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, nutrition.ErrMealNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"message": "error", "error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not delete meal: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *MealHandler) PostFood(c *gin.Context) {
	var requestBody PostFoodBody
	if err := c.BindJSON(&requestBody); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no food in body"})
		return
	}
	entry, err := h.mealLog.FindFood(c.Request.Context(), requestBody.FoodID)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "error", "error": err.Error()})
		return
	}
	meal, err := h.mealLog.AddFood(c.Request.Context(), c.Param("id"), entry, requestBody.Quantity)
	if err != nil {
		if errors.Is(err, nutrition.ErrMealNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"message": "error", "error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusBadRequest,
			gin.H{"message": "error", "error": fmt.Sprintf("can not add food: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": meal})
}

func (h *MealHandler) DeleteFood(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "index is not a number"})
		return
	}
	meal, err := h.mealLog.RemoveFood(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		if errors.Is(err, nutrition.ErrMealNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"message": "error", "error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusBadRequest,
			gin.H{"message": "error", "error": fmt.Sprintf("can not remove food: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": meal})
}

func (h *MealHandler) GetTotals(c *gin.Context) {
	totals, err := h.mealLog.Totals(c.Request.Context())
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not compute totals: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": totals})
}

func (h *MealHandler) GetFoods(c *gin.Context) {
	entries, err := h.mealLog.FoodList(c.Request.Context())
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not load food list: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": entries})
}

func (h *MealHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
