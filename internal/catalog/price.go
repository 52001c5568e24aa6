package catalog

import "github.com/shopspring/decimal"

// FreeLabel is shown instead of a price for zero-price services.
const FreeLabel = "Бесплатно"

// FormatPrice renders kopecks for people: 500000 -> "5000₽", 12345 -> "123.45₽".
func FormatPrice(minor int64) string {
	if minor == 0 {
		return FreeLabel
	}
	return decimal.New(minor, -2).String() + "₽"
}
