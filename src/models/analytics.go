// src/models/analytics.go
package models

import "time"

// DateRange is the earliest/latest pair of a transaction set, in the raw
// Time format of the export.
type DateRange struct {
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
}

// --- Deposits / withdrawals ---

// CashMovement is a single deposit or withdrawal. Withdrawal amounts are
// stored as absolute values.
type CashMovement struct {
	Time     string  `json:"time"`
	Type     string  `json:"type"` // "deposit" or "withdrawal"
	Action   string  `json:"action"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	MerchantName     string `json:"merchantName,omitempty"`
	MerchantCategory string `json:"merchantCategory,omitempty"`
}

// CashMovementSummary aggregates deposits and withdrawals.
type CashMovementSummary struct {
	TotalDeposits    float64                `json:"totalDeposits"`
	TotalWithdrawals float64                `json:"totalWithdrawals"`
	TotalsByType     map[string]float64     `json:"totalsByType"`
	Deposits         []CashMovement         `json:"deposits"`
	Withdrawals      []CashMovement         `json:"withdrawals"`
	DepositsByMonth  map[time.Month]float64 `json:"depositsByMonth"`
}

// --- Dividends ---

// DividendStockSummary aggregates dividend payments of one ticker.
type DividendStockSummary struct {
	Ticker string             `json:"ticker"`
	Name   string             `json:"name"`
	Total  float64            `json:"total"`
	Count  int                `json:"count"`
	ByType map[string]float64 `json:"byType"`
}

// DividendTypeSummary aggregates one dividend sub-type across all stocks.
type DividendTypeSummary struct {
	Total        float64 `json:"total"`
	Count        int     `json:"count"`
	UniqueStocks int     `json:"uniqueStocks"`
}

// StockRanking is one entry of a top-stocks-by-total list.
type StockRanking struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Total  float64 `json:"total"`
}

// DividendSummary is the dividend facet over the full transaction list.
type DividendSummary struct {
	TotalDividends    float64                          `json:"totalDividends"`
	PaymentCount      int                              `json:"paymentCount"`
	AveragePerPayment float64                          `json:"averagePerPayment"`
	ByStock           map[string]*DividendStockSummary `json:"byStock"`
	ByMonth           map[time.Month]float64           `json:"byMonth"`
	ByYear            map[int]float64                  `json:"byYear"`
	ByType            map[string]*DividendTypeSummary  `json:"byType"`
	TopStocks         []StockRanking                   `json:"topStocks"`
}

// --- Interest ---

// InterestPayment is a single "Interest on cash" row.
type InterestPayment struct {
	Time     string  `json:"time"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CurrencyInterest is the total and count of interest in one currency.
type CurrencyInterest struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// InterestSummary is the interest facet over the full transaction list.
type InterestSummary struct {
	TotalCount int                               `json:"totalCount"`
	ByCurrency map[string]CurrencyInterest       `json:"byCurrency"`
	Details    []InterestPayment                 `json:"details"`
	ByMonth    map[time.Month]map[string]float64 `json:"byMonth"`
	ByYear     map[int]map[string]float64        `json:"byYear"`
	Currencies []string                          `json:"currencies"`
	DateRange  DateRange                         `json:"dateRange"`
}

// --- Trading ---

// Position is the running state of one ticker after replaying all orders.
type Position struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	SharesBought float64 `json:"sharesBought"`
	SharesSold   float64 `json:"sharesSold"`
	NetShares    float64 `json:"netShares"`
	Invested     float64 `json:"invested"`
	Proceeds     float64 `json:"proceeds"`
	RealizedPL   float64 `json:"realizedPL"`
	AvgBuyPrice  float64 `json:"avgBuyPrice"`
	BuyCount     int     `json:"buyCount"`
	SellCount    int     `json:"sellCount"`
	Closed       bool    `json:"closed"`
}

// MonthActivity is buy/sell activity aggregated over a month of the year.
type MonthActivity struct {
	Buys   int     `json:"buys"`
	Sells  int     `json:"sells"`
	Volume float64 `json:"volume"`
}

// CompanyRanking is one entry of a top-companies-by-volume list, where
// volume is invested plus realized proceeds.
type CompanyRanking struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// TradingSummary is the trading facet over the full transaction list.
type TradingSummary struct {
	BuyCount        int                          `json:"buyCount"`
	SellCount       int                          `json:"sellCount"`
	TotalInvested   float64                      `json:"totalInvested"`
	TotalProceeds   float64                      `json:"totalProceeds"`
	RealizedGains   float64                      `json:"realizedGains"`
	RealizedLosses  float64                      `json:"realizedLosses"`
	Positions       map[string]*Position         `json:"positions"`
	MonthlyActivity map[time.Month]MonthActivity `json:"monthlyActivity"`
	TopCompanies    []CompanyRanking             `json:"topCompanies"`
}
