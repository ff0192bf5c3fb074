package reconcile

import (
	"errors"
	"math"

	"catalog-service/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidPercentage is returned for a zero, NaN or infinite percentage
var ErrInvalidPercentage = errors.New("percentage must be a finite non-zero number")

var hundred = decimal.NewFromInt(100)

// ValidatePercentage reports whether percent can be applied
func ValidatePercentage(percent float64) error {
	if percent == 0 || math.IsNaN(percent) || math.IsInf(percent, 0) {
		return ErrInvalidPercentage
	}
	return nil
}

// AdjustPrices returns copies of products with price * (1 + percent/100),
// rounded to cents. Negative percentages are allowed and the result is not
// floored, so anything below -100 yields a negative price.
func AdjustPrices(products []models.Product, percent float64) ([]models.Product, error) {
	if err := ValidatePercentage(percent); err != nil {
		return nil, err
	}

	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percent).Div(hundred))

	adjusted := make([]models.Product, len(products))
	for i, p := range products {
		p.Price = p.Price.Mul(factor).Round(2)
		adjusted[i] = p
	}
	return adjusted, nil
}
