// src/models/transaction.go
package models

import (
	"strings"
	"time"
)

// Column headers of a Trading 212 history export CSV that the aggregators
// understand. Unrecognized columns are preserved in Transaction.Extra so new
// export columns survive a round trip.
const (
	ColAction           = "Action"
	ColTime             = "Time"
	ColTicker           = "Ticker"
	ColName             = "Name"
	ColShares           = "No. of shares"
	ColPricePerShare    = "Price / share"
	ColCurrencyPrice    = "Currency (Price / share)"
	ColTotal            = "Total"
	ColCurrencyTotal    = "Currency (Total)"
	ColResult           = "Result"
	ColCurrencyResult   = "Currency (Result)"
	ColMerchantName     = "Merchant name"
	ColMerchantCategory = "Merchant category"
)

// Transaction is a single row of a history export, enriched with the
// provenance of the report it came from. Values stay as raw strings; amounts
// are interpreted by the aggregators (empty or malformed values count as 0).
type Transaction struct {
	Action           string `json:"action"`
	Time             string `json:"time"`
	Ticker           string `json:"ticker,omitempty"`
	Name             string `json:"name,omitempty"`
	Shares           string `json:"shares,omitempty"`
	PricePerShare    string `json:"pricePerShare,omitempty"`
	Total            string `json:"total,omitempty"`
	CurrencyTotal    string `json:"currencyTotal,omitempty"`
	Result           string `json:"result,omitempty"`
	MerchantName     string `json:"merchantName,omitempty"`
	MerchantCategory string `json:"merchantCategory,omitempty"`

	// Extra keeps columns this version does not model.
	Extra map[string]string `json:"extra,omitempty"`

	// Report provenance, attached during ingestion.
	ReportID       int64     `json:"reportId"`
	ReportTimeFrom time.Time `json:"reportTimeFrom"`
	ReportTimeTo   time.Time `json:"reportTimeTo"`
}

// TransactionFromRow maps a parsed CSV row onto a Transaction. Known columns
// land in typed fields, everything else goes into Extra.
func TransactionFromRow(row map[string]string) Transaction {
	tx := Transaction{}
	for key, value := range row {
		switch key {
		case ColAction:
			tx.Action = value
		case ColTime:
			tx.Time = value
		case ColTicker:
			tx.Ticker = value
		case ColName:
			tx.Name = value
		case ColShares:
			tx.Shares = value
		case ColPricePerShare:
			tx.PricePerShare = value
		case ColTotal:
			tx.Total = value
		case ColCurrencyTotal:
			tx.CurrencyTotal = value
		case ColResult:
			tx.Result = value
		case ColMerchantName:
			tx.MerchantName = value
		case ColMerchantCategory:
			tx.MerchantCategory = value
		default:
			if tx.Extra == nil {
				tx.Extra = make(map[string]string)
			}
			tx.Extra[key] = value
		}
	}
	return tx
}

// transactionTimeLayouts are the timestamp formats seen in export CSVs.
var transactionTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsedTime parses the row's Time field. ok is false when the value does
// not match any known layout; callers treat such rows as having no ordering
// information.
func (t Transaction) ParsedTime() (time.Time, bool) {
	value := strings.TrimSpace(t.Time)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range transactionTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// CurrencyOrDefault returns the Total currency, defaulting to EUR.
func (t Transaction) CurrencyOrDefault() string {
	if c := strings.TrimSpace(t.CurrencyTotal); c != "" {
		return c
	}
	return "EUR"
}

// TickerOrUnknown returns the ticker, defaulting to "Unknown".
func (t Transaction) TickerOrUnknown() string {
	if ticker := strings.TrimSpace(t.Ticker); ticker != "" {
		return ticker
	}
	return "Unknown"
}

// NameOrUnknown returns the company name, defaulting to "Unknown".
func (t Transaction) NameOrUnknown() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return "Unknown"
}
