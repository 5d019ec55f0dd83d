package processors

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// closedPositionEpsilon is the share tolerance under which a position
// counts as fully closed. Fractional shares accumulate floating point dust,
// so an exact zero check would leave sold-out positions open forever.
const closedPositionEpsilon = 1e-6

// Order kinds of the Action column.
var buyActions = map[string]bool{
	"market buy": true,
	"limit buy":  true,
	"stop buy":   true,
}

var sellActions = map[string]bool{
	"market sell": true,
	"limit sell":  true,
	"stop sell":   true,
}

// tradingProcessorImpl implements the TradingProcessor interface.
type tradingProcessorImpl struct{}

// NewTradingProcessor creates a new instance of TradingProcessor.
func NewTradingProcessor() TradingProcessor {
	return &tradingProcessorImpl{}
}

// Process replays buy/sell orders in list order, maintaining a running
// position per ticker, and aggregates overall activity, realized results
// and a top-companies-by-volume ranking (volume = invested + proceeds).
func (p *tradingProcessorImpl) Process(transactions []models.Transaction) models.TradingSummary {
	summary := models.TradingSummary{
		Positions:       make(map[string]*models.Position),
		MonthlyActivity: make(map[time.Month]models.MonthActivity),
	}

	for _, tx := range transactions {
		action := strings.ToLower(strings.TrimSpace(tx.Action))
		isBuy := buyActions[action]
		isSell := sellActions[action]
		if !isBuy && !isSell {
			continue
		}

		ticker := tx.TickerOrUnknown()
		amount := math.Abs(utils.ParseDecimal(tx.Total))
		shares := math.Abs(utils.ParseDecimal(tx.Shares))

		position, ok := summary.Positions[ticker]
		if !ok {
			position = &models.Position{Ticker: ticker, Name: tx.NameOrUnknown()}
			summary.Positions[ticker] = position
		}

		if isBuy {
			summary.BuyCount++
			summary.TotalInvested += amount
			position.BuyCount++
			position.SharesBought += shares
			position.Invested += amount
		} else {
			summary.SellCount++
			summary.TotalProceeds += amount
			position.SellCount++
			position.SharesSold += shares
			position.Proceeds += amount

			result := utils.ParseDecimal(tx.Result)
			position.RealizedPL += result
			if result >= 0 {
				summary.RealizedGains += result
			} else {
				summary.RealizedLosses += math.Abs(result)
			}
		}

		position.NetShares = position.SharesBought - position.SharesSold
		position.Closed = math.Abs(position.NetShares) < closedPositionEpsilon
		if position.SharesBought > 0 {
			position.AvgBuyPrice = position.Invested / position.SharesBought
		}

		if at, ok := tx.ParsedTime(); ok {
			activity := summary.MonthlyActivity[at.Month()]
			if isBuy {
				activity.Buys++
			} else {
				activity.Sells++
			}
			activity.Volume += amount
			summary.MonthlyActivity[at.Month()] = activity
		}
	}

	summary.TopCompanies = rankCompanies(summary.Positions)
	return summary
}

// rankCompanies returns the top positions by traded volume, descending.
func rankCompanies(positions map[string]*models.Position) []models.CompanyRanking {
	rankings := make([]models.CompanyRanking, 0, len(positions))
	for _, position := range positions {
		rankings = append(rankings, models.CompanyRanking{
			Ticker: position.Ticker,
			Name:   position.Name,
			Volume: position.Invested + position.Proceeds,
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Volume != rankings[j].Volume {
			return rankings[i].Volume > rankings[j].Volume
		}
		return rankings[i].Ticker < rankings[j].Ticker
	})
	if len(rankings) > topRankingSize {
		rankings = rankings[:topRankingSize]
	}
	return rankings
}
