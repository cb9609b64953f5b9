package utils

import (
	"strings"

	"github.com/yeremiapane/table-order/models"
)

// FormatRupees renders an amount the way it is printed on bills and
// notifications, e.g. "₹12,345.50".
func FormatRupees(amount models.Money) string {
	formatted := amount.String()
	sign := ""
	if strings.HasPrefix(formatted, "-") {
		sign = "-"
		formatted = formatted[1:]
	}

	parts := strings.SplitN(formatted, ".", 2)
	integerPart := parts[0]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return sign + "₹" + strings.Join(groups, ",") + "." + parts[1]
}
