package processors

import (
	"sort"
	"strings"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// interestAction is the Action value of interest payments, matched
// case-insensitively.
const interestAction = "interest on cash"

// interestProcessorImpl implements the InterestProcessor interface.
type interestProcessorImpl struct{}

// NewInterestProcessor creates a new instance of InterestProcessor.
func NewInterestProcessor() InterestProcessor {
	return &interestProcessorImpl{}
}

// Process aggregates all "Interest on cash" rows per currency, per month of
// year and per calendar year, keyed by currency since interest accrues
// separately per cash balance.
func (p *interestProcessorImpl) Process(transactions []models.Transaction) models.InterestSummary {
	summary := models.InterestSummary{
		ByCurrency: make(map[string]models.CurrencyInterest),
		ByMonth:    make(map[time.Month]map[string]float64),
		ByYear:     make(map[int]map[string]float64),
	}

	for _, tx := range transactions {
		if !strings.EqualFold(strings.TrimSpace(tx.Action), interestAction) {
			continue
		}

		amount := utils.ParseDecimal(tx.Total)
		currency := tx.CurrencyOrDefault()

		summary.TotalCount++
		entry := summary.ByCurrency[currency]
		entry.Total += amount
		entry.Count++
		summary.ByCurrency[currency] = entry

		summary.Details = append(summary.Details, models.InterestPayment{
			Time:     tx.Time,
			Amount:   amount,
			Currency: currency,
		})

		if at, ok := tx.ParsedTime(); ok {
			if summary.ByMonth[at.Month()] == nil {
				summary.ByMonth[at.Month()] = make(map[string]float64)
			}
			summary.ByMonth[at.Month()][currency] += amount
			if summary.ByYear[at.Year()] == nil {
				summary.ByYear[at.Year()] = make(map[string]float64)
			}
			summary.ByYear[at.Year()][currency] += amount
		}
	}

	sort.SliceStable(summary.Details, func(i, j int) bool {
		return summary.Details[i].Time < summary.Details[j].Time
	})
	if len(summary.Details) > 0 {
		summary.DateRange = models.DateRange{
			Earliest: summary.Details[0].Time,
			Latest:   summary.Details[len(summary.Details)-1].Time,
		}
	}
	for currency := range summary.ByCurrency {
		summary.Currencies = append(summary.Currencies, currency)
	}
	sort.Strings(summary.Currencies)
	return summary
}
