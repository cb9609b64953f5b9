package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// Register -> POST /user/register
func (uc *UserController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	user, err := uc.users.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{"user_id": user.ID})
}

// Login -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var req struct {
		EmailOrPhone string `json:"emailOrPhone" binding:"required"`
		Password     string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	token, user, err := uc.users.Login(c.Request.Context(), req.EmailOrPhone, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{"token": token, "user": user})
}

// GetProfile -> GET /user/profile
func (uc *UserController) GetProfile(c *gin.Context) {
	user, err := uc.users.GetUser(c.Request.Context(), middlewares.UserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile", user)
}
