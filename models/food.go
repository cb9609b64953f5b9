package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Food categories. The spellings match the menu data already in use.
const (
	CategorySalad      = "Salad"
	CategoryRolls      = "Rolls"
	CategoryDeserts    = "Deserts"
	CategorySandwitch  = "Sandwitch"
	CategoryCake       = "Cake"
	CategoryPureVeg    = "Pure Veg"
	CategoryPasta      = "Pasta"
	CategoryNoodles    = "Noodles"
	CategoryDrinks     = "Drinks"
	CategoryMilkshakes = "Milkshakes"
)

var FoodCategories = []string{
	CategorySalad,
	CategoryRolls,
	CategoryDeserts,
	CategorySandwitch,
	CategoryCake,
	CategoryPureVeg,
	CategoryPasta,
	CategoryNoodles,
	CategoryDrinks,
	CategoryMilkshakes,
}

func IsFoodCategory(category string) bool {
	for _, c := range FoodCategories {
		if c == category {
			return true
		}
	}
	return false
}

type Food struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       Money     `gorm:"not null" json:"price"`
	Image       string    `gorm:"type:varchar(255);not null" json:"image"`
	Category    string    `gorm:"type:varchar(50);not null;index" json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (f *Food) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
