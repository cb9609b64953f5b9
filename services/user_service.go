package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type UserService struct {
	db     *gorm.DB
	tokens *utils.TokenManager
}

func NewUserService(db *gorm.DB, tokens *utils.TokenManager) *UserService {
	return &UserService{db: db, tokens: tokens}
}

// Register creates an account reachable by email, phone or both.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if name == "" {
		return nil, invalidInput("Name is required")
	}
	if email == "" && phone == "" {
		return nil, invalidInput("Email or phone number is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, invalidInput(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	user := models.User{Name: name}
	if email != "" {
		if kind, _, err := ClassifyIdentifier(email); err != nil || kind != IdentifierEmail {
			return nil, invalidInput("Invalid email format")
		}
		user.Email = &email
	}
	if phone != "" {
		if kind, _, err := ClassifyIdentifier(phone); err != nil || kind != IdentifierPhone {
			return nil, invalidInput("Invalid phone number format")
		}
		user.Phone = &phone
	}

	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{})
	switch {
	case user.Email != nil && user.Phone != nil:
		q = q.Where("email = ? OR phone = ?", email, phone)
	case user.Email != nil:
		q = q.Where("email = ?", email)
	default:
		q = q.Where("phone = ?", phone)
	}
	if err := q.Count(&count).Error; err != nil {
		return nil, dbError(err, "")
	}
	if count > 0 {
		return nil, invalidInput("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, upstream("Failed to hash password", err)
	}
	user.Password = string(hashed)

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidInput("User already exists")
		}
		return nil, upstream("database error", err)
	}
	utils.InfoLogger.Infof("New user registered: %s", user.ID)
	return &user, nil
}

// Login checks a password for the account behind an email or phone number
// and returns a session token.
func (s *UserService) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	kind, id, err := ClassifyIdentifier(identifier)
	if err != nil {
		return "", nil, err
	}
	column := "email"
	if kind == IdentifierPhone {
		column = "phone"
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where(column+" = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, unauthorized("invalid credentials")
		}
		return "", nil, upstream("database error", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, unauthorized("invalid credentials")
	}

	token, err := s.tokens.GenerateSessionToken(user.ID)
	if err != nil {
		return "", nil, upstream("Failed to issue token", err)
	}
	utils.InfoLogger.Infof("Login successful for user: %s", user.ID)
	return token, &user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, dbError(err, "User not found")
	}
	return &user, nil
}
