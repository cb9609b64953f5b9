package services

import (
	"gorm.io/gorm"
)

// updateVersioned applies fields to the row only if its version still
// matches, bumping the version in the same statement.
func updateVersioned(tx *gorm.DB, model interface{}, id string, version int64, fields map[string]interface{}) error {
	fields["version"] = gorm.Expr("version + 1")
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(fields)
	if res.Error != nil {
		return upstream("database error", res.Error)
	}
	if res.RowsAffected == 0 {
		return conflict("The record was modified by another request, please retry")
	}
	return nil
}

func billFields(total, gst, totalAmount interface{}, paid bool) map[string]interface{} {
	return map[string]interface{}{
		"bill_total":        total,
		"bill_gst":          gst,
		"bill_total_amount": totalAmount,
		"bill_payment":      paid,
	}
}
