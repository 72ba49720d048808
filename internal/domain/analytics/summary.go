package analytics

import (
	"errors"
	"fmt"
)

// NoData is rendered for metrics the backend did not report.
const NoData = "no data"

// Summary is the aggregate catalogue statistics. AveragePrice is nil when the
// backend has no price data, which is distinct from an average of zero.
type Summary struct {
	TotalProducts *int     `json:"total_products"`
	AveragePrice  *float64 `json:"average_price,omitempty"`
}

// Validate rejects bodies without total_products.
func (s *Summary) Validate() error {
	if s.TotalProducts == nil {
		return errors.New("summary has no total_products")
	}
	return nil
}

// FormatAveragePrice renders the average price or NoData.
func FormatAveragePrice(avg *float64) string {
	if avg == nil {
		return NoData
	}
	return fmt.Sprintf("$%.2f", *avg)
}
