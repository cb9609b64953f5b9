package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

const msgInvalidDetails = "Missing or invalid details"

// respondServiceError maps a service error kind to a status code. Only the
// error's public message reaches the client; the cause is logged.
func respondServiceError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(se.Kind, services.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(se.Kind, services.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(se.Kind, services.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(se.Kind, services.ErrConflict):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	utils.RespondError(c, code, se.Message)
}

// bindJSON binds the body and answers 400 with msg on failure.
func bindJSON(c *gin.Context, req interface{}, msg string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.InfoLogger.Debugf("bind %s: %v", c.FullPath(), err)
		utils.RespondError(c, http.StatusBadRequest, msg)
		return false
	}
	return true
}
