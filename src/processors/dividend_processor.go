package processors

import (
	"sort"
	"strings"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// Dividend sub-types recognized in the Action column.
const (
	DividendTypeRegular      = "Regular"
	DividendTypeManufactured = "Manufactured Payment"
	DividendTypeTaxExempted  = "Tax Exempted"
)

// dividendProcessorImpl implements the DividendProcessor interface.
type dividendProcessorImpl struct{}

// NewDividendProcessor creates a new instance of DividendProcessor.
func NewDividendProcessor() DividendProcessor {
	return &dividendProcessorImpl{}
}

// Process selects every row whose Action mentions a dividend and aggregates
// totals per stock, per month of year, per calendar year and per sub-type,
// plus a top-stocks ranking.
func (p *dividendProcessorImpl) Process(transactions []models.Transaction) models.DividendSummary {
	summary := models.DividendSummary{
		ByStock: make(map[string]*models.DividendStockSummary),
		ByMonth: make(map[time.Month]float64),
		ByYear:  make(map[int]float64),
		ByType:  make(map[string]*models.DividendTypeSummary),
	}
	stocksByType := make(map[string]map[string]bool)

	for _, tx := range transactions {
		if !strings.Contains(strings.ToLower(tx.Action), "dividend") {
			continue
		}

		amount := utils.ParseDecimal(tx.Total)
		ticker := tx.TickerOrUnknown()
		dividendType := classifyDividend(tx.Action)

		summary.TotalDividends += amount
		summary.PaymentCount++

		stock, ok := summary.ByStock[ticker]
		if !ok {
			stock = &models.DividendStockSummary{
				Ticker: ticker,
				Name:   tx.NameOrUnknown(),
				ByType: make(map[string]float64),
			}
			summary.ByStock[ticker] = stock
		}
		stock.Total += amount
		stock.Count++
		stock.ByType[dividendType] += amount

		if at, ok := tx.ParsedTime(); ok {
			summary.ByMonth[at.Month()] += amount
			summary.ByYear[at.Year()] += amount
		}

		typeSummary, ok := summary.ByType[dividendType]
		if !ok {
			typeSummary = &models.DividendTypeSummary{}
			summary.ByType[dividendType] = typeSummary
			stocksByType[dividendType] = make(map[string]bool)
		}
		typeSummary.Total += amount
		typeSummary.Count++
		stocksByType[dividendType][ticker] = true
	}

	for dividendType, stocks := range stocksByType {
		summary.ByType[dividendType].UniqueStocks = len(stocks)
	}
	if summary.PaymentCount > 0 {
		summary.AveragePerPayment = utils.RoundFloat(summary.TotalDividends/float64(summary.PaymentCount), 2)
	}
	summary.TopStocks = rankStocks(summary.ByStock)
	return summary
}

// classifyDividend maps an Action value onto a dividend sub-type by
// keyword. Anything that is not a manufactured payment or tax exempted
// counts as a regular dividend.
func classifyDividend(action string) string {
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "manufactured"):
		return DividendTypeManufactured
	case strings.Contains(lower, "tax exempted"):
		return DividendTypeTaxExempted
	default:
		return DividendTypeRegular
	}
}

// rankStocks returns the top stocks by total dividend, descending.
func rankStocks(byStock map[string]*models.DividendStockSummary) []models.StockRanking {
	rankings := make([]models.StockRanking, 0, len(byStock))
	for _, stock := range byStock {
		rankings = append(rankings, models.StockRanking{
			Ticker: stock.Ticker,
			Name:   stock.Name,
			Total:  stock.Total,
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Total != rankings[j].Total {
			return rankings[i].Total > rankings[j].Total
		}
		return rankings[i].Ticker < rankings[j].Ticker
	})
	if len(rankings) > topRankingSize {
		rankings = rankings[:topRankingSize]
	}
	return rankings
}
