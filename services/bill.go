package services

import (
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/table-order/models"
)

const GSTRatePercent = 18

// GSTThreshold is the smallest subtotal that attracts GST.
var GSTThreshold = models.Rupees(500)

var gstRate = decimal.New(GSTRatePercent, -2)

// ComputeBill returns the GST and grand total for a subtotal of non-cancelled
// items. GST is rounded to the nearest paisa, halves away from zero.
func ComputeBill(total models.Money) (gst, totalAmount models.Money) {
	if total >= GSTThreshold {
		gst = models.Money(decimal.NewFromInt(int64(total)).Mul(gstRate).Round(0).IntPart())
	}
	return gst, total + gst
}

// BillFor builds an unpaid table bill from a subtotal.
func BillFor(total models.Money) models.TableBill {
	gst, totalAmount := ComputeBill(total)
	return models.TableBill{Total: total, GST: gst, TotalAmount: totalAmount}
}
