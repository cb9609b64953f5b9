package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type PaymentController struct {
	checkout *services.CheckoutService
}

func NewPaymentController(checkout *services.CheckoutService) *PaymentController {
	return &PaymentController{checkout: checkout}
}

// CreatePayment -> POST /table/payment {tableId, orders}. The orders are the
// rows returned by /table/table-orders; cancelled items are not charged.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req struct {
		TableID string                   `json:"tableId" binding:"required"`
		Orders  []services.TableOrderRow `json:"orders" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	items := make([]services.CheckoutItem, 0, len(req.Orders))
	for _, row := range req.Orders {
		if row.FoodItem == nil || row.OrderItem.Quantity <= 0 {
			utils.RespondError(c, http.StatusBadRequest, "Invalid order format")
			return
		}
		if row.OrderItem.Status == models.ItemStatusCancelled {
			continue
		}
		price := row.OrderItem.Price
		if price == 0 {
			price = row.FoodItem.Price
		}
		items = append(items, services.CheckoutItem{
			Name:     row.FoodItem.Name,
			Price:    price,
			Quantity: row.OrderItem.Quantity,
		})
	}

	result, err := pc.checkout.CreateCheckout(c.Request.Context(), req.TableID, items)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checkout session created", result)
}

// VerifyPayment -> POST /table/verify-payment {tableId, success, reference}
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var req struct {
		TableID   string `json:"tableId" binding:"required"`
		Success   *bool  `json:"success" binding:"required"`
		Reference string `json:"reference" binding:"required"`
	}
	if !bindJSON(c, &req, "Missing details") {
		return
	}
	if !*req.Success {
		utils.RespondError(c, http.StatusBadRequest, "Invalid success value")
		return
	}

	if err := pc.checkout.ConfirmCheckout(c.Request.Context(), req.TableID, req.Reference); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment verified", nil)
}

// PaymentNotification -> POST /table/payment/notification (gateway webhook)
func (pc *PaymentController) PaymentNotification(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil || len(payload) == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Empty notification")
		return
	}
	if err := pc.checkout.HandleNotification(c.Request.Context(), payload); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "OK", nil)
}
