package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type FoodController struct {
	foods *services.FoodService
}

func NewFoodController(foods *services.FoodService) *FoodController {
	return &FoodController{foods: foods}
}

// ListFoods -> GET /food/list[?category=]
func (fc *FoodController) ListFoods(c *gin.Context) {
	foods, err := fc.foods.ListFoods(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of foods", foods)
}

// AddFood -> POST /food/add
func (fc *FoodController) AddFood(c *gin.Context) {
	var req struct {
		Name        string       `json:"name" binding:"required"`
		Description string       `json:"description" binding:"required"`
		Price       models.Money `json:"price" binding:"required"`
		Image       string       `json:"image" binding:"required"`
		Category    string       `json:"category" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	food, err := fc.foods.CreateFood(c.Request.Context(), services.FoodInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Food added", food)
}
