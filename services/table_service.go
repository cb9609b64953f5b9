package services

import (
	"context"
	"errors"

	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/metrics"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
	"gorm.io/gorm"
)

// OrderLine is one requested food and quantity in a new order.
type OrderLine struct {
	FoodID   string `json:"foodId"`
	Quantity int    `json:"quantity"`
}

// TableOrderRow pairs an open order item with its food.
type TableOrderRow struct {
	OrderItem models.OrderItem `json:"orderItem"`
	FoodItem  *models.Food     `json:"foodItem"`
	OrderID   string           `json:"orderId"`
}

type TableOrders struct {
	TableOrders []TableOrderRow  `json:"tableOrders"`
	TableBill   models.TableBill `json:"tableBill"`
}

type ItemStatusUpdate struct {
	TableID string
	OrderID string
	FoodID  string
	Status  string
}

type TableService struct {
	db      *gorm.DB
	events  EventPublisher
	metrics *metrics.Metrics
}

func NewTableService(db *gorm.DB, events EventPublisher, m *metrics.Metrics) *TableService {
	return &TableService{db: db, events: publisherOrDiscard(events), metrics: m}
}

func (s *TableService) CreateTable(ctx context.Context, tableNo int) (*models.Table, error) {
	if tableNo <= 0 {
		return nil, invalidInput("Enter table number")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Table{}).Where("table_no = ?", tableNo).Count(&count).Error; err != nil {
		return nil, dbError(err, "")
	}
	if count > 0 {
		return nil, invalidInput("Table already existed")
	}

	table := models.Table{TableNo: tableNo}
	if err := s.db.WithContext(ctx).Create(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidInput("Table already existed")
		}
		return nil, upstream("database error", err)
	}
	table.CurrentOrders = []models.Order{}
	table.PastOrders = []models.TableArchive{}

	utils.InfoLogger.Infof("Table %d created with id %s", table.TableNo, table.ID)
	s.events.Publish(kds.EventTableCreate, table)
	return &table, nil
}

// ListTables returns every table with its open orders and settled history.
func (s *TableService) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := s.db.WithContext(ctx).
		Preload("CurrentOrders", "archive_id IS NULL").
		Preload("CurrentOrders.Items").
		Preload("PastOrders").
		Preload("PastOrders.Orders").
		Preload("PastOrders.Orders.Items").
		Order("table_no ASC").
		Find(&tables).Error
	if err != nil {
		return nil, dbError(err, "")
	}
	return tables, nil
}

// DeleteTable removes a table together with its open and archived orders.
func (s *TableService) DeleteTable(ctx context.Context, tableID string) error {
	if tableID == "" {
		return invalidInput("Table id is required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, "id = ?", tableID).Error; err != nil {
			return dbError(err, "Table not found")
		}

		orderIDs := tx.Model(&models.Order{}).Select("id").Where("table_id = ?", tableID)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
			return upstream("database error", err)
		}
		if err := tx.Where("table_id = ?", tableID).Delete(&models.Order{}).Error; err != nil {
			return upstream("database error", err)
		}
		if err := tx.Where("table_id = ?", tableID).Delete(&models.TableArchive{}).Error; err != nil {
			return upstream("database error", err)
		}
		if err := tx.Delete(&table).Error; err != nil {
			return upstream("database error", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.Infof("Table %s deleted", tableID)
	s.events.Publish(kds.EventTableDelete, eventData{"id": tableID})
	return nil
}

// PlaceOrder creates an order for the table and adds its subtotal to the
// table's running bill. Repeated foods are merged into one line.
func (s *TableService) PlaceOrder(ctx context.Context, userID, tableID string, lines []OrderLine) (*models.Order, error) {
	if tableID == "" || len(lines) == 0 {
		return nil, invalidInput("Missing or invalid details")
	}

	quantities := make(map[string]int, len(lines))
	foodIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.FoodID == "" || l.Quantity <= 0 {
			return nil, invalidInput("Invalid order format")
		}
		if _, seen := quantities[l.FoodID]; !seen {
			foodIDs = append(foodIDs, l.FoodID)
		}
		quantities[l.FoodID] += l.Quantity
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, "id = ?", tableID).Error; err != nil {
			return dbError(err, "Table not found")
		}

		var foods []models.Food
		if err := tx.Where("id IN ?", foodIDs).Find(&foods).Error; err != nil {
			return dbError(err, "")
		}
		byID := make(map[string]models.Food, len(foods))
		for _, f := range foods {
			byID[f.ID] = f
		}

		var total models.Money
		items := make([]models.OrderItem, 0, len(foodIDs))
		for _, id := range foodIDs {
			food, ok := byID[id]
			if !ok {
				return notFound("Food item not found")
			}
			qty := quantities[id]
			total += food.Price * models.Money(qty)
			items = append(items, models.OrderItem{
				FoodID:   id,
				Quantity: qty,
				Price:    food.Price,
				Status:   models.ItemStatusPending,
			})
		}

		gst, totalAmount := ComputeBill(total)
		order = models.Order{
			TableID:     table.ID,
			UserID:      userID,
			Items:       items,
			Total:       total,
			GST:         gst,
			TotalAmount: totalAmount,
		}
		if err := tx.Create(&order).Error; err != nil {
			return upstream("database error", err)
		}

		bill := BillFor(table.Bill.Total + total)
		return updateVersioned(tx, &models.Table{}, table.ID, table.Version,
			billFields(bill.Total, bill.GST, bill.TotalAmount, false))
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Infof("Order %s placed on table %s, subtotal %s", order.ID, tableID, utils.FormatRupees(order.Total))
	s.events.Publish(kds.EventOrderPlaced, order)
	return &order, nil
}

// tableOrdersAttempts bounds how often GetTableOrders re-reads the table
// when a concurrent write moves its version.
const tableOrdersAttempts = 3

// GetTableOrders lists the table's open order items and re-derives the
// current bill from the open orders, persisting it. A version conflict with a
// concurrent mutation is retried, so readers do not see it.
func (s *TableService) GetTableOrders(ctx context.Context, tableID string) (*TableOrders, error) {
	if tableID == "" {
		return nil, invalidInput("Table id is required")
	}
	for attempt := 1; ; attempt++ {
		result, err := s.loadTableOrders(ctx, tableID)
		if err == nil || !errors.Is(err, ErrConflict) || attempt == tableOrdersAttempts {
			return result, err
		}
		utils.InfoLogger.Debugf("Table %s changed while reading orders, retrying", tableID)
	}
}

func (s *TableService) loadTableOrders(ctx context.Context, tableID string) (*TableOrders, error) {
	result := &TableOrders{TableOrders: []TableOrderRow{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, "id = ?", tableID).Error; err != nil {
			return dbError(err, "Table not found")
		}

		var orders []models.Order
		err := tx.Preload("Items").Preload("Items.Food").
			Where("table_id = ? AND archive_id IS NULL", tableID).
			Order("created_at ASC").
			Find(&orders).Error
		if err != nil {
			return dbError(err, "")
		}

		var total models.Money
		for _, o := range orders {
			total += o.Total
			for _, item := range o.Items {
				result.TableOrders = append(result.TableOrders, TableOrderRow{
					OrderItem: item,
					FoodItem:  item.Food,
					OrderID:   o.ID,
				})
			}
		}

		bill := BillFor(total)
		bill.Payment = table.Bill.Payment
		result.TableBill = bill
		if bill == table.Bill {
			return nil
		}
		return updateVersioned(tx, &models.Table{}, table.ID, table.Version,
			billFields(bill.Total, bill.GST, bill.TotalAmount, bill.Payment))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateItemStatus moves an order item to a new status. Cancelling an item
// records an audit entry and takes its amount off both the order and the
// table bill. It returns the status that was applied.
func (s *TableService) UpdateItemStatus(ctx context.Context, req ItemStatusUpdate) (string, error) {
	if req.TableID == "" || req.OrderID == "" || req.FoodID == "" || req.Status == "" {
		return "", invalidInput("Missing or invalid details")
	}
	if !models.IsItemStatus(req.Status) {
		return "", invalidInput("Invalid status")
	}

	var cancelled *models.CancelledOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, "id = ?", req.OrderID).Error; err != nil {
			return dbError(err, "Order not found")
		}
		var table models.Table
		if err := tx.First(&table, "id = ?", req.TableID).Error; err != nil {
			return dbError(err, "Table not found")
		}
		if order.TableID != table.ID {
			return notFound("Order not found on this table")
		}
		if order.ArchiveID != nil {
			return invalidInput("Order has already been settled")
		}

		var item *models.OrderItem
		for i := range order.Items {
			if order.Items[i].FoodID == req.FoodID && order.Items[i].Status != models.ItemStatusCancelled {
				item = &order.Items[i]
				break
			}
		}
		if item == nil {
			return notFound("Food item not found in the order")
		}

		if req.Status != models.ItemStatusCancelled {
			err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Update("status", req.Status).Error
			return dbError(err, "")
		}

		var food models.Food
		if err := tx.First(&food, "id = ?", req.FoodID).Error; err != nil {
			return dbError(err, "Food item not found")
		}
		var user models.User
		if err := tx.First(&user, "id = ?", order.UserID).Error; err != nil {
			return dbError(err, "User not found")
		}

		unitPrice := item.Price
		if unitPrice == 0 {
			unitPrice = food.Price
		}
		reduction := unitPrice * models.Money(item.Quantity)

		cancelled = &models.CancelledOrder{
			OrderID: order.ID,
			Food: models.CancelledFood{
				FoodID:      food.ID,
				Name:        food.Name,
				Description: food.Description,
				Price:       unitPrice,
				Image:       food.Image,
				Category:    food.Category,
				Quantity:    item.Quantity,
			},
			User:  models.CancelledUser{UserID: user.ID, Name: user.Name, Email: user.Email},
			Table: models.CancelledTable{TableID: table.ID, TableNo: table.TableNo},
		}
		if err := tx.Create(cancelled).Error; err != nil {
			return upstream("database error", err)
		}

		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND status <> ?", item.ID, models.ItemStatusCancelled).
			Update("status", models.ItemStatusCancelled)
		if res.Error != nil {
			return upstream("database error", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("The item was modified by another request, please retry")
		}

		orderGST, orderAmount := ComputeBill(order.Total - reduction)
		err := updateVersioned(tx, &models.Order{}, order.ID, order.Version, map[string]interface{}{
			"total":        order.Total - reduction,
			"gst":          orderGST,
			"total_amount": orderAmount,
		})
		if err != nil {
			return err
		}

		bill := BillFor(table.Bill.Total - reduction)
		return updateVersioned(tx, &models.Table{}, table.ID, table.Version,
			billFields(bill.Total, bill.GST, bill.TotalAmount, false))
	})
	if err != nil {
		return "", err
	}

	if cancelled != nil {
		s.metrics.ItemCancelled()
		s.events.Publish(kds.EventItemCancelled, cancelled)
	} else {
		s.events.Publish(kds.EventItemStatusUpdate, eventData{
			"tableId": req.TableID,
			"orderId": req.OrderID,
			"food":    req.FoodID,
			"status":  req.Status,
		})
	}
	s.events.Publish(kds.EventBillUpdate, eventData{"tableId": req.TableID})
	return req.Status, nil
}

// CompleteOrders archives the table's open orders and bill without payment.
func (s *TableService) CompleteOrders(ctx context.Context, tableID string) error {
	if tableID == "" {
		return invalidInput("Missing or invalid details")
	}
	var archive *models.TableArchive
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, "id = ?", tableID).Error; err != nil {
			return dbError(err, "Table not found")
		}
		var err error
		archive, err = archiveTable(tx, &table, false, nil)
		return err
	})
	if err != nil {
		return err
	}

	s.metrics.TableSettled("manual")
	s.events.Publish(kds.EventTableSettled, archive)
	return nil
}

// archiveTable moves the table's open orders and bill into a new history
// entry and resets the bill.
func archiveTable(tx *gorm.DB, table *models.Table, paid bool, paymentRef *string) (*models.TableArchive, error) {
	bill := table.Bill
	bill.Payment = paid
	archive := models.TableArchive{
		TableID:    table.ID,
		Bill:       bill,
		PaymentRef: paymentRef,
	}
	if err := tx.Create(&archive).Error; err != nil {
		return nil, upstream("database error", err)
	}

	err := tx.Model(&models.Order{}).
		Where("table_id = ? AND archive_id IS NULL", table.ID).
		Updates(map[string]interface{}{
			"archive_id": archive.ID,
			"version":    gorm.Expr("version + 1"),
		}).Error
	if err != nil {
		return nil, upstream("database error", err)
	}

	if err := updateVersioned(tx, &models.Table{}, table.ID, table.Version, billFields(0, 0, 0, false)); err != nil {
		return nil, err
	}
	utils.InfoLogger.Infof("Table %s archived (paid=%t, amount %s)", table.ID, paid, utils.FormatRupees(bill.TotalAmount))
	return &archive, nil
}

type eventData = map[string]interface{}
