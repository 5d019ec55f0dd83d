// src/handlers/account_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/services"
	"github.com/xdubnickas/trading212-tracker/src/t212"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

type verifyAccountResponse struct {
	Cash      models.AccountCash `json:"cash"`
	FromCache bool               `json:"fromCache"`
}

// HandleVerifyAccount probes the API key against the account cash endpoint.
// A recent snapshot is served once from cache to spare the upstream rate
// limit.
func (h *AccountHandler) HandleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	credential, ok := GetCredentialFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "API key required", http.StatusUnauthorized)
		return
	}

	cash, fromCache, err := h.accountService.VerifyAccount(r.Context(), credential)
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
			ctxLogger.Error("HandleVerifyAccount: upstream call failed", "error", err)
			utils.SendJSONError(w, "Account verification failed", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifyAccountResponse{Cash: cash, FromCache: fromCache})
}
