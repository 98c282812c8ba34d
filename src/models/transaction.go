package models

import "github.com/shopspring/decimal"

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeCredit TransactionType = "CREDIT"
)

// SourceTransaction is one bank transaction as delivered by the
// open-banking aggregator. The amount's sign convention is inconsistent
// at the source; only TransactionType is authoritative for direction.
type SourceTransaction struct {
	Timestamp       string          `json:"timestamp"`
	Description     string          `json:"description"`
	TransactionType TransactionType `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionID   string          `json:"transactionId"`
	MerchantName    string          `json:"merchantName,omitempty"`
	Address         string          `json:"address,omitempty"`
}

// NormalizedTransaction is the record shape the ledger's write API accepts.
// AmountMinorUnits is an integer number of cents, negative for outflows.
// ImportedID carries the source transaction id unchanged; the ledger keys
// duplicate suppression on it.
type NormalizedTransaction struct {
	AccountID        string `json:"accountId"`
	Date             string `json:"date"`
	PayeeName        string `json:"payeeName"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	ImportedID       string `json:"importedId"`
	Notes            string `json:"notes,omitempty"`
}
