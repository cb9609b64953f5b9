package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type TableController struct {
	tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{tables: tables}
}

type tableIDRequest struct {
	TableID string `json:"tableId" binding:"required"`
}

// CreateTable -> POST /table/create {tableNo}
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNo int `json:"tableNo" binding:"required,gt=0"`
	}
	if !bindJSON(c, &req, "Enter table number") {
		return
	}

	table, err := tc.tables.CreateTable(c.Request.Context(), req.TableNo)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created", table)
}

// GetAllTables -> GET /table/tables
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.tables.ListTables(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	var req tableIDRequest
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}
	if err := tc.tables.DeleteTable(c.Request.Context(), req.TableID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", nil)
}

// PlaceOrder -> POST /table/order, placed on behalf of the signed-in user
func (tc *TableController) PlaceOrder(c *gin.Context) {
	var req struct {
		TableID string               `json:"tableId" binding:"required"`
		Items   []services.OrderLine `json:"items" binding:"required,min=1"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	order, err := tc.tables.PlaceOrder(c.Request.Context(), middlewares.UserID(c), req.TableID, req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

// TableOrders -> POST /table/table-orders {tableId}
func (tc *TableController) TableOrders(c *gin.Context) {
	var req tableIDRequest
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	result, err := tc.tables.GetTableOrders(c.Request.Context(), req.TableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table orders", result)
}

// UpdateStatus -> POST /table/update-status {orderId, tableId, foodId, status}
func (tc *TableController) UpdateStatus(c *gin.Context) {
	var req struct {
		OrderID string `json:"orderId" binding:"required"`
		TableID string `json:"tableId" binding:"required"`
		FoodID  string `json:"foodId" binding:"required"`
		Status  string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}

	status, err := tc.tables.UpdateItemStatus(c.Request.Context(), services.ItemStatusUpdate{
		TableID: req.TableID,
		OrderID: req.OrderID,
		FoodID:  req.FoodID,
		Status:  req.Status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Status updated to "+status, gin.H{"status": status})
}

// CompletedOrder -> POST /table/completed-order {tableId}
func (tc *TableController) CompletedOrder(c *gin.Context) {
	var req tableIDRequest
	if !bindJSON(c, &req, msgInvalidDetails) {
		return
	}
	if err := tc.tables.CompleteOrders(c.Request.Context(), req.TableID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders completed", nil)
}
