package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"heron/src/models"
)

// notesSeparator joins description and address in the notes field.
const notesSeparator = " | "

var minorUnitsPerMajor = decimal.NewFromInt(100)

// Normalize maps one aggregator transaction to the ledger's record shape.
// It is pure: no I/O, no shared state, and the same input always produces
// the same output.
//
// The amount sign is forced by the transaction type (DEBIT <= 0,
// CREDIT >= 0) regardless of the raw sign; a zero amount passes through
// unchanged. Scaling to minor units rounds half away from zero, so 12.345
// becomes 1235 cents before the sign is applied. Callers must validate the
// input first (see ValidateBatch); Normalize does not re-check it.
func Normalize(src models.SourceTransaction, accountID string) models.NormalizedTransaction {
	amount := forceSign(src.Amount, src.TransactionType)
	minor := amount.Mul(minorUnitsPerMajor).Round(0).IntPart()

	payee := strings.TrimSpace(src.MerchantName)
	if payee == "" {
		payee = src.Description
	}

	return models.NormalizedTransaction{
		AccountID:        accountID,
		Date:             src.Timestamp[:10],
		PayeeName:        payee,
		AmountMinorUnits: minor,
		ImportedID:       src.TransactionID,
		Notes:            joinNotes(src.Description, src.Address),
	}
}

// NormalizeBatch converts every transaction in input order.
func NormalizeBatch(txns []models.SourceTransaction, accountID string) []models.NormalizedTransaction {
	out := make([]models.NormalizedTransaction, len(txns))
	for i, t := range txns {
		out[i] = Normalize(t, accountID)
	}
	return out
}

// forceSign makes the amount agree with the direction the type implies.
// Only a disagreeing sign is flipped; zero has no sign and is untouched.
func forceSign(amount decimal.Decimal, t models.TransactionType) decimal.Decimal {
	switch t {
	case models.TransactionTypeDebit:
		if amount.IsPositive() {
			return amount.Neg()
		}
	case models.TransactionTypeCredit:
		if amount.IsNegative() {
			return amount.Neg()
		}
	}
	return amount
}

func joinNotes(description, address string) string {
	parts := make([]string, 0, 2)
	if description != "" {
		parts = append(parts, description)
	}
	if address != "" {
		parts = append(parts, address)
	}
	return strings.Join(parts, notesSeparator)
}

// ValidateBatch rejects malformed records before conversion. The whole
// batch is rejected on the first bad record; the error names the offending
// position so the caller can audit the feed.
func ValidateBatch(txns []models.SourceTransaction) error {
	for i, t := range txns {
		if err := validate(t); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

func validate(t models.SourceTransaction) error {
	if t.TransactionID == "" {
		return fmt.Errorf("missing transactionId")
	}
	if len(t.Timestamp) < 10 {
		return fmt.Errorf("timestamp %q too short for a calendar date", t.Timestamp)
	}
	if _, err := time.Parse("2006-01-02", t.Timestamp[:10]); err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", t.Timestamp, err)
	}
	switch t.TransactionType {
	case models.TransactionTypeDebit, models.TransactionTypeCredit:
	default:
		return fmt.Errorf("unknown transaction type %q", t.TransactionType)
	}
	return nil
}
