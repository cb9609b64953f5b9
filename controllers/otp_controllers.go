package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type OTPController struct {
	otp *services.OTPService
}

func NewOTPController(otp *services.OTPService) *OTPController {
	return &OTPController{otp: otp}
}

// sameUser defaults userID to the signed-in account and rejects requests
// naming any other account.
func sameUser(c *gin.Context, userID *string) bool {
	if *userID == "" {
		*userID = middlewares.UserID(c)
	}
	if *userID != middlewares.UserID(c) {
		utils.RespondError(c, http.StatusForbidden, "You can only act on your own account")
		return false
	}
	return true
}

// RequestOTP -> POST /auth/request-otp {userId}
func (oc *OTPController) RequestOTP(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) || !sameUser(c, &req.UserID) {
		return
	}
	if err := oc.otp.RequestOTP(c.Request.Context(), req.UserID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "OTP sent to email and phone", nil)
}

// VerifyOTP -> POST /auth/verify-otp {userId, otp}, returns a password
// change token
func (oc *OTPController) VerifyOTP(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
		OTP    string `json:"otp" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) || !sameUser(c, &req.UserID) {
		return
	}
	token, err := oc.otp.VerifyOTP(c.Request.Context(), req.UserID, req.OTP)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "OTP verified", gin.H{"token": token})
}

// ChangePassword -> POST /auth/change-password {token, newPassword}
func (oc *OTPController) ChangePassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}
	if err := oc.otp.ChangePassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Password changed", nil)
}

// VerifyOTPAndChangePassword -> POST /auth/verify-otp/password-change
// {userId, otp, newPassword}. Both steps run in one request; the password
// is checked first so a weak password does not burn the code.
func (oc *OTPController) VerifyOTPAndChangePassword(c *gin.Context) {
	var req struct {
		UserID      string `json:"userId"`
		OTP         string `json:"otp" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) || !sameUser(c, &req.UserID) {
		return
	}
	if len(req.NewPassword) < services.MinPasswordLength {
		utils.RespondError(c, http.StatusBadRequest, "Password is too short")
		return
	}

	ctx := c.Request.Context()
	token, err := oc.otp.VerifyOTP(ctx, req.UserID, req.OTP)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := oc.otp.ChangePassword(ctx, token, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Password changed", nil)
}

// RequestLoginOTP -> POST /auth/request-login-otp {emailOrPhone}
func (oc *OTPController) RequestLoginOTP(c *gin.Context) {
	var req struct {
		EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}
	if err := oc.otp.RequestLoginOTP(c.Request.Context(), req.EmailOrPhone); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "OTP sent", nil)
}

// VerifyLoginOTP -> POST /auth/verify-login-otp {emailOrPhone, otp}
func (oc *OTPController) VerifyLoginOTP(c *gin.Context) {
	var req struct {
		EmailOrPhone string `json:"emailOrPhone" binding:"required"`
		OTP          string `json:"otp" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}
	token, user, err := oc.otp.VerifyLoginOTP(c.Request.Context(), req.EmailOrPhone, req.OTP)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{"token": token, "user": user})
}
