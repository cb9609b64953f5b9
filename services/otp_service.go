package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/table-order/metrics"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	OTPTTL            = 10 * time.Minute
	MinPasswordLength = 8
	// MaxOTPAttempts wrong guesses discard the stored code.
	MaxOTPAttempts    = 5
)

type IdentifierKind int

const (
	IdentifierPhone IdentifierKind = iota + 1
	IdentifierEmail
)

var (
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ClassifyIdentifier decides whether a login identifier is a phone number or
// an email address and returns it trimmed.
func ClassifyIdentifier(raw string) (IdentifierKind, string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case phonePattern.MatchString(id):
		return IdentifierPhone, id, nil
	case emailPattern.MatchString(id):
		return IdentifierEmail, id, nil
	default:
		return 0, "", invalidInput("Invalid email or phone number format")
	}
}

// GenerateOTP returns a uniformly random six digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

type OTPService struct {
	db       *gorm.DB
	notifier Notifier
	tokens   *utils.TokenManager
	metrics  *metrics.Metrics
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(db *gorm.DB, notifier Notifier, tokens *utils.TokenManager, m *metrics.Metrics) *OTPService {
	return &OTPService{
		db:       db,
		notifier: notifier,
		tokens:   tokens,
		metrics:  m,
		now:      time.Now,
		generate: GenerateOTP,
	}
}

func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	s.now = now
	return s
}

func (s *OTPService) WithGenerator(generate func() (string, error)) *OTPService {
	s.generate = generate
	return s
}

// RequestOTP issues a password-change code to the user's email and phone.
func (s *OTPService) RequestOTP(ctx context.Context, userID string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return dbError(err, "User not found")
	}
	return s.issue(ctx, &user, "password_change")
}

// RequestLoginOTP issues a login code to the account behind an email address
// or a ten digit phone number.
func (s *OTPService) RequestLoginOTP(ctx context.Context, identifier string) error {
	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	return s.issue(ctx, user, "login")
}

// VerifyOTP consumes a password-change code and returns a short-lived token
// that authorises one password change.
func (s *OTPService) VerifyOTP(ctx context.Context, userID, code string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return "", dbError(err, "User not found")
	}
	nonce := uuid.NewString()
	if err := s.consume(ctx, &user, code, map[string]interface{}{"password_nonce": nonce}); err != nil {
		return "", err
	}
	token, err := s.tokens.GeneratePasswordChangeToken(user.ID, nonce)
	if err != nil {
		return "", upstream("Failed to issue token", err)
	}
	return token, nil
}

// ChangePassword sets a new password for the user named by a password-change
// token. The token is spent by the same update, so it works once.
func (s *OTPService) ChangePassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.ParsePasswordChangeToken(token)
	if err != nil {
		return unauthorized("Invalid or expired password change token")
	}
	if len(newPassword) < MinPasswordLength {
		return invalidInput(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return upstream("Failed to hash password", err)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND password_nonce = ?", claims.UserID, claims.ID).
		Updates(map[string]interface{}{"password": string(hashed), "password_nonce": nil})
	if res.Error != nil {
		return upstream("database error", res.Error)
	}
	if res.RowsAffected == 0 {
		return unauthorized("Invalid or expired password change token")
	}
	utils.InfoLogger.Infof("Password changed for user %s", claims.UserID)
	return nil
}

// VerifyLoginOTP consumes a login code and returns a session token.
func (s *OTPService) VerifyLoginOTP(ctx context.Context, identifier, code string) (string, *models.User, error) {
	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return "", nil, err
	}
	if err := s.consume(ctx, user, code, nil); err != nil {
		return "", nil, err
	}
	token, err := s.tokens.GenerateSessionToken(user.ID)
	if err != nil {
		return "", nil, upstream("Failed to issue token", err)
	}
	user.OTP = nil
	user.OTPExpires = nil
	return token, user, nil
}

func (s *OTPService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	kind, id, err := ClassifyIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	column := "email"
	if kind == IdentifierPhone {
		column = "phone"
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where(column+" = ?", id).First(&user).Error; err != nil {
		return nil, dbError(err, "User not found")
	}
	return &user, nil
}

func (s *OTPService) issue(ctx context.Context, user *models.User, flow string) error {
	if user.Email == nil && user.Phone == nil {
		return invalidInput("No email or phone number on file")
	}
	code, err := s.generate()
	if err != nil {
		return upstream("Failed to generate OTP", err)
	}
	expires := s.now().Add(OTPTTL)
	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"otp": code, "otp_expires": expires, "otp_attempts": 0}).Error
	if err != nil {
		return upstream("database error", err)
	}
	s.metrics.OTPIssued(flow)
	s.dispatch(ctx, user, code)
	return nil
}

// dispatch sends the code over every channel the user has and waits for all
// of them. Delivery failures are logged, never returned.
func (s *OTPService) dispatch(ctx context.Context, user *models.User, code string) {
	body := fmt.Sprintf("Your OTP for verification is: %s. It is valid for %d minutes.", code, int(OTPTTL.Minutes()))

	var wg sync.WaitGroup
	if user.Email != nil && *user.Email != "" {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			err := s.notifier.SendEmail(ctx, to, "Your OTP Code", body)
			s.metrics.OTPDispatched("email", err)
			if err != nil {
				utils.ErrorLogger.Errorf("Failed to email OTP to user %s: %v", user.ID, err)
			}
		}(*user.Email)
	}
	if user.Phone != nil && *user.Phone != "" {
		wg.Add(1)
		go func(phone string) {
			defer wg.Done()
			err := s.notifier.SendSMS(ctx, phone, body)
			s.metrics.OTPDispatched("sms", err)
			if err != nil {
				utils.ErrorLogger.Errorf("Failed to text OTP to user %s: %v", user.ID, err)
			}
		}(*user.Phone)
	}
	wg.Wait()
}

// consume checks the code against the stored one and clears it, applying
// extra in the same update. Clearing is conditional on the code so that it
// can be used only once.
func (s *OTPService) consume(ctx context.Context, user *models.User, code string, extra map[string]interface{}) error {
	code = strings.TrimSpace(code)
	if !user.HasPendingOTP(s.now()) || user.OTPAttempts >= MaxOTPAttempts {
		s.metrics.OTPVerified(false)
		return unauthorized("Invalid or expired OTP")
	}
	if code == "" || subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(code)) != 1 {
		s.recordFailure(ctx, user)
		s.metrics.OTPVerified(false)
		return unauthorized("Invalid or expired OTP")
	}

	fields := map[string]interface{}{"otp": nil, "otp_expires": nil, "otp_attempts": 0}
	for k, v := range extra {
		fields[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND otp = ? AND otp_attempts < ?", user.ID, code, MaxOTPAttempts).
		Updates(fields)
	if res.Error != nil {
		return upstream("database error", res.Error)
	}
	if res.RowsAffected == 0 {
		s.metrics.OTPVerified(false)
		return unauthorized("Invalid or expired OTP")
	}
	s.metrics.OTPVerified(true)
	return nil
}

// recordFailure counts a wrong guess against the stored code and discards the
// code once the attempt budget is spent.
func (s *OTPService) recordFailure(ctx context.Context, user *models.User) {
	fields := map[string]interface{}{"otp_attempts": gorm.Expr("otp_attempts + 1")}
	if user.OTPAttempts+1 >= MaxOTPAttempts {
		fields["otp"] = nil
		fields["otp_expires"] = nil
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND otp = ?", user.ID, *user.OTP).
		Updates(fields).Error
	if err != nil {
		utils.ErrorLogger.Errorf("Failed to record OTP attempt for user %s: %v", user.ID, err)
	}
}
