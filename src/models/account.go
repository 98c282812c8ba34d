package models

// Account is one account in the remote ledger's account set.
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	OffBudget bool   `json:"offBudget,omitempty"`
	Closed    bool   `json:"closed,omitempty"`
}

// AccountMapping routes a logical account name at one institution to its
// aggregator account id and its ledger account id.
type AccountMapping struct {
	Name              string `json:"name"`
	Institution       string `json:"institution"`
	Type              string `json:"type"` // "credit" or "debit"
	ProviderAccountID string `json:"providerAccountId"`
	LedgerAccountID   string `json:"ledgerAccountId"`
}

// IsCreditCard reports whether transactions for this mapping are fetched
// from the aggregator's cards endpoints rather than the accounts endpoints.
func (m AccountMapping) IsCreditCard() bool {
	return m.Type == "credit"
}
