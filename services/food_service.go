package services

import (
	"context"
	"strings"

	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
	"gorm.io/gorm"
)

type FoodInput struct {
	Name        string
	Description string
	Price       models.Money
	Image       string
	Category    string
}

type FoodService struct {
	db *gorm.DB
}

func NewFoodService(db *gorm.DB) *FoodService {
	return &FoodService{db: db}
}

// ListFoods returns the menu, optionally narrowed to one category.
func (s *FoodService) ListFoods(ctx context.Context, category string) ([]models.Food, error) {
	foods := []models.Food{}
	q := s.db.WithContext(ctx).Order("category ASC, name ASC")
	if category != "" {
		if !models.IsFoodCategory(category) {
			return nil, invalidInput("Unknown category")
		}
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&foods).Error; err != nil {
		return nil, dbError(err, "")
	}
	return foods, nil
}

func (s *FoodService) CreateFood(ctx context.Context, in FoodInput) (*models.Food, error) {
	food := models.Food{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Image:       strings.TrimSpace(in.Image),
		Category:    in.Category,
	}
	switch {
	case food.Name == "" || food.Description == "" || food.Image == "":
		return nil, invalidInput("Name, description and image are required")
	case food.Price <= 0:
		return nil, invalidInput("Price must be greater than zero")
	case !models.IsFoodCategory(food.Category):
		return nil, invalidInput("Unknown category")
	}

	if err := s.db.WithContext(ctx).Create(&food).Error; err != nil {
		return nil, upstream("database error", err)
	}
	utils.InfoLogger.Infof("Food %q added to %s at %s", food.Name, food.Category, utils.FormatRupees(food.Price))
	return &food, nil
}
