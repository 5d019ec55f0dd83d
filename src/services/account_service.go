// src/services/account_service.go
package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/t212"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// AccountService verifies an API key by fetching the account cash snapshot.
// A fetched snapshot is cached briefly and consumed by exactly one
// subsequent call: the cache entry is removed the moment it is read, so a
// stale snapshot is never served twice.
type AccountService struct {
	client t212.Client
	cache  *cache.Cache
	ttl    time.Duration
}

// NewAccountService creates the account verification service.
func NewAccountService(client t212.Client, reportCache *cache.Cache, ttl time.Duration) *AccountService {
	return &AccountService{client: client, cache: reportCache, ttl: ttl}
}

// VerifyAccount returns the cash snapshot for the given API key. The second
// return value reports whether the snapshot came from the single-use cache.
func (s *AccountService) VerifyAccount(ctx context.Context, apiKey string) (models.AccountCash, bool, error) {
	key := "account_cash_" + utils.HashCredential(apiKey)
	if cached, found := s.cache.Get(key); found {
		s.cache.Delete(key) // single use, invalidate after read
		return cached.(models.AccountCash), true, nil
	}

	cash, err := s.client.FetchAccountCash(ctx, apiKey)
	if err != nil {
		return models.AccountCash{}, false, err
	}
	logger.L.Info("Account verified", "credential", utils.HashCredential(apiKey))
	s.cache.Set(key, cash, s.ttl)
	return cash, false, nil
}
