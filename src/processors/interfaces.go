// src/processors/interfaces.go
package processors

import (
	"sort"

	"github.com/xdubnickas/trading212-tracker/src/models"
)

// Each processor is a pure reducer over the unified transaction list: no
// state is kept between calls, a facet is recomputed in full whenever the
// list changes. Shared policy: amounts that fail to parse count as 0,
// missing currencies default to EUR, missing tickers/names to "Unknown".

// topRankingSize is how many entries the top-stocks / top-companies
// rankings keep.
const topRankingSize = 5

// CashMovementProcessor computes the deposits/withdrawals facet.
type CashMovementProcessor interface {
	Process(transactions []models.Transaction) models.CashMovementSummary
}

// DividendProcessor computes the dividend facet.
type DividendProcessor interface {
	Process(transactions []models.Transaction) models.DividendSummary
}

// InterestProcessor computes the interest-on-cash facet.
type InterestProcessor interface {
	Process(transactions []models.Transaction) models.InterestSummary
}

// TradingProcessor computes the stock trading facet.
type TradingProcessor interface {
	Process(transactions []models.Transaction) models.TradingSummary
}

// sortMovementsByTime orders cash movements chronologically; entries with
// unparsable times keep their relative order.
func sortMovementsByTime(movements []models.CashMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Time < movements[j].Time
	})
}
