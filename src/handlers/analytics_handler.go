// src/handlers/analytics_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/patrickmn/go-cache"
	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/processors"
	"github.com/xdubnickas/trading212-tracker/src/services"
	"github.com/xdubnickas/trading212-tracker/src/t212"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// Cache key formats, all keyed by the credential fingerprint.
const (
	ckIngestResult    = "res_ingest_%s"
	ckCashSummary     = "agg_cash_%s"
	ckDividendSummary = "agg_dividend_%s"
	ckInterestSummary = "agg_interest_%s"
	ckTradingSummary  = "agg_trading_%s"
)

// AnalyticsHandler runs ingestion and serves the aggregated facets of the
// merged transaction list.
type AnalyticsHandler struct {
	client            t212.Client
	ingestService     *services.IngestService
	reportCache       *cache.Cache
	cashProcessor     processors.CashMovementProcessor
	dividendProcessor processors.DividendProcessor
	interestProcessor processors.InterestProcessor
	tradingProcessor  processors.TradingProcessor
}

func NewAnalyticsHandler(client t212.Client, ingestService *services.IngestService, reportCache *cache.Cache) *AnalyticsHandler {
	return &AnalyticsHandler{
		client:            client,
		ingestService:     ingestService,
		reportCache:       reportCache,
		cashProcessor:     processors.NewCashMovementProcessor(),
		dividendProcessor: processors.NewDividendProcessor(),
		interestProcessor: processors.NewInterestProcessor(),
		tradingProcessor:  processors.NewTradingProcessor(),
	}
}

// HandleIngest downloads and merges every finished export into one
// transaction list, caches it for the facet endpoints and returns the
// summary. Any previously cached facet aggregations are invalidated.
func (h *AnalyticsHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	credential, ok := GetCredentialFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "API key required", http.StatusUnauthorized)
		return
	}

	exports, err := h.client.ListExports(r.Context(), credential)
	if err != nil {
		var rateErr *t212.RateLimitError
		var authErr *t212.AuthError
		switch {
		case errors.As(err, &rateErr):
			w.Header().Set("Retry-After", "60")
			utils.SendJSONError(w, "Trading 212 rate limit reached", http.StatusTooManyRequests)
		case errors.As(err, &authErr):
			utils.SendJSONError(w, "Trading 212 rejected the API key", http.StatusUnauthorized)
		default:
			ctxLogger.Error("HandleIngest: listing exports failed", "error", err)
			utils.SendJSONError(w, "Could not list exports", http.StatusBadGateway)
		}
		return
	}

	result, err := h.ingestService.Ingest(r.Context(), exports)
	if err != nil {
		ctxLogger.Error("HandleIngest: ingestion failed", "error", err)
		utils.SendJSONError(w, "Ingestion failed", http.StatusBadGateway)
		return
	}

	credHash := utils.HashCredential(credential)
	h.reportCache.Set(fmt.Sprintf(ckIngestResult, credHash), result, cache.DefaultExpiration)
	for _, key := range []string{ckCashSummary, ckDividendSummary, ckInterestSummary, ckTradingSummary} {
		h.reportCache.Delete(fmt.Sprintf(key, credHash))
	}

	ctxLogger.Info("HandleIngest: ingestion complete",
		"transactions", result.Summary.TotalTransactions,
		"reports", result.Summary.TotalReports,
		"skippedReports", result.Summary.SkippedReports)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result.Summary)
}

// cachedIngest returns the transaction list ingested earlier for this
// credential, or nil if ingestion has not run or has expired.
func (h *AnalyticsHandler) cachedIngest(credential string) *services.IngestResult {
	cached, found := h.reportCache.Get(fmt.Sprintf(ckIngestResult, utils.HashCredential(credential)))
	if !found {
		return nil
	}
	result, ok := cached.(*services.IngestResult)
	if !ok {
		return nil
	}
	return result
}

// serveFacet replies with the cached aggregation when present, otherwise
// computes it from the ingested transactions and caches it.
func (h *AnalyticsHandler) serveFacet(w http.ResponseWriter, r *http.Request, keyFormat string, compute func(result *services.IngestResult) any) {
	credential, ok := GetCredentialFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "API key required", http.StatusUnauthorized)
		return
	}

	credHash := utils.HashCredential(credential)
	cacheKey := fmt.Sprintf(keyFormat, credHash)
	if cached, found := h.reportCache.Get(cacheKey); found {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cached)
		return
	}

	result := h.cachedIngest(credential)
	if result == nil {
		utils.SendJSONError(w, "No ingested transactions, run ingestion first", http.StatusNotFound)
		return
	}

	summary := compute(result)
	h.reportCache.Set(cacheKey, summary, cache.DefaultExpiration)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *AnalyticsHandler) HandleGetCashMovements(w http.ResponseWriter, r *http.Request) {
	h.serveFacet(w, r, ckCashSummary, func(result *services.IngestResult) any {
		return h.cashProcessor.Process(result.Transactions)
	})
}

func (h *AnalyticsHandler) HandleGetDividends(w http.ResponseWriter, r *http.Request) {
	h.serveFacet(w, r, ckDividendSummary, func(result *services.IngestResult) any {
		return h.dividendProcessor.Process(result.Transactions)
	})
}

func (h *AnalyticsHandler) HandleGetInterest(w http.ResponseWriter, r *http.Request) {
	h.serveFacet(w, r, ckInterestSummary, func(result *services.IngestResult) any {
		return h.interestProcessor.Process(result.Transactions)
	})
}

func (h *AnalyticsHandler) HandleGetTrading(w http.ResponseWriter, r *http.Request) {
	h.serveFacet(w, r, ckTradingSummary, func(result *services.IngestResult) any {
		return h.tradingProcessor.Process(result.Transactions)
	})
}
