package db

import (
	"log"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"heron/src/models"
)

// Accounts listing hits the ledger behind a full session open/sync/close, so
// reads are fronted by a short TTL cache.
var (
	accountsCache *ristretto.Cache[string, []models.Account]

	accountsTTL = 60 * time.Second
)

func InitCache() {
	var err error
	accountsCache, err = ristretto.NewCache(&ristretto.Config[string, []models.Account]{
		NumCounters: 1000, // number of keys to track frequency of
		MaxCost:     1000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
}

func GetCachedAccounts(budgetID string) ([]models.Account, bool) {
	if accountsCache == nil {
		return nil, false
	}
	return accountsCache.Get(budgetID)
}

func SetCachedAccounts(budgetID string, accounts []models.Account) {
	if accountsCache == nil {
		return
	}
	accountsCache.SetWithTTL(budgetID, accounts, 1, accountsTTL)
	accountsCache.Wait()
}

func ClearAccountsCache(budgetID string) {
	if accountsCache != nil {
		accountsCache.Del(budgetID)
	}
}
