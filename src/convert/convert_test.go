package convert

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heron/src/models"
)

func srcTxn(amount string, t models.TransactionType) models.SourceTransaction {
	return models.SourceTransaction{
		Timestamp:       "2024-03-15T10:22:00Z",
		Description:     "Coffee Shop",
		TransactionType: t,
		Amount:          decimal.RequireFromString(amount),
		TransactionID:   "txn-001",
	}
}

func TestNormalize_SignForcedByType(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		ttype  models.TransactionType
		want   int64
	}{
		{"debit already negative", "-4.00", models.TransactionTypeDebit, -400},
		{"debit with positive raw sign", "4.00", models.TransactionTypeDebit, -400},
		{"credit already positive", "3500.00", models.TransactionTypeCredit, 350000},
		{"credit with negative raw sign", "-3500.00", models.TransactionTypeCredit, 350000},
		{"debit zero", "0", models.TransactionTypeDebit, 0},
		{"credit zero", "0.00", models.TransactionTypeCredit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(srcTxn(tt.amount, tt.ttype), "acct-1")
			assert.Equal(t, tt.want, got.AmountMinorUnits)
			if tt.ttype == models.TransactionTypeDebit {
				assert.LessOrEqual(t, got.AmountMinorUnits, int64(0))
			} else {
				assert.GreaterOrEqual(t, got.AmountMinorUnits, int64(0))
			}
		})
	}
}

func TestNormalize_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		ttype  models.TransactionType
		want   int64
	}{
		{"debit half boundary", "12.345", models.TransactionTypeDebit, -1235},
		{"credit half boundary", "12.345", models.TransactionTypeCredit, 1235},
		{"smallest half cent debit", "0.005", models.TransactionTypeDebit, -1},
		{"smallest half cent credit", "-0.005", models.TransactionTypeCredit, 1},
		{"below half rounds down", "2.674", models.TransactionTypeCredit, 267},
		{"above half rounds up", "2.676", models.TransactionTypeCredit, 268},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(srcTxn(tt.amount, tt.ttype), "acct-1")
			assert.Equal(t, tt.want, got.AmountMinorUnits)
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	src := srcTxn("12.345", models.TransactionTypeDebit)
	src.MerchantName = "Blue Bottle"
	src.Address = "123 Main St"

	first := Normalize(src, "acct-1")
	second := Normalize(src, "acct-1")
	assert.Equal(t, first, second)
}

func TestNormalize_ImportedIDRoundTrips(t *testing.T) {
	src := srcTxn("1.00", models.TransactionTypeDebit)
	src.TransactionID = "a1b2-c3d4-unchanged"

	got := Normalize(src, "acct-1")
	assert.Equal(t, "a1b2-c3d4-unchanged", got.ImportedID)
	assert.Equal(t, "acct-1", got.AccountID)
}

func TestNormalize_DateIsCalendarPortionOfTimestamp(t *testing.T) {
	src := srcTxn("1.00", models.TransactionTypeDebit)
	src.Timestamp = "2024-03-15T10:22:00Z"

	got := Normalize(src, "acct-1")
	assert.Equal(t, "2024-03-15", got.Date)
}

func TestNormalize_PayeeFallsBackToDescription(t *testing.T) {
	src := srcTxn("1.00", models.TransactionTypeDebit)
	src.MerchantName = ""
	got := Normalize(src, "acct-1")
	assert.Equal(t, "Coffee Shop", got.PayeeName)

	src.MerchantName = "Blue Bottle"
	got = Normalize(src, "acct-1")
	assert.Equal(t, "Blue Bottle", got.PayeeName)

	// Whitespace-only merchant names do not count as present.
	src.MerchantName = "   "
	got = Normalize(src, "acct-1")
	assert.Equal(t, "Coffee Shop", got.PayeeName)
}

func TestNormalize_NotesAssembly(t *testing.T) {
	tests := []struct {
		name        string
		description string
		address     string
		want        string
	}{
		{"both parts", "Coffee Shop", "123 Main St", "Coffee Shop | 123 Main St"},
		{"address absent", "Coffee Shop", "", "Coffee Shop"},
		{"description absent", "", "123 Main St", "123 Main St"},
		{"both absent", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := srcTxn("1.00", models.TransactionTypeDebit)
			src.Description = tt.description
			src.Address = tt.address
			got := Normalize(src, "acct-1")
			assert.Equal(t, tt.want, got.Notes)
		})
	}
}

func TestNormalizeBatch_PreservesOrder(t *testing.T) {
	a := srcTxn("1.00", models.TransactionTypeDebit)
	a.TransactionID = "first"
	b := srcTxn("2.00", models.TransactionTypeCredit)
	b.TransactionID = "second"

	got := NormalizeBatch([]models.SourceTransaction{a, b}, "acct-1")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ImportedID)
	assert.Equal(t, "second", got[1].ImportedID)
}

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.SourceTransaction)
		wantErr string
	}{
		{"valid", func(t *models.SourceTransaction) {}, ""},
		{"missing id", func(t *models.SourceTransaction) { t.TransactionID = "" }, "missing transactionId"},
		{"short timestamp", func(t *models.SourceTransaction) { t.Timestamp = "2024-03" }, "too short"},
		{"garbage timestamp", func(t *models.SourceTransaction) { t.Timestamp = "not-a-date-at" }, "parsing timestamp"},
		{"unknown type", func(t *models.SourceTransaction) { t.TransactionType = "TRANSFER" }, "unknown transaction type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := srcTxn("1.00", models.TransactionTypeDebit)
			tt.mutate(&src)
			err := ValidateBatch([]models.SourceTransaction{src})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "transaction 0")
		})
	}
}

func TestValidateBatch_ReportsOffendingIndex(t *testing.T) {
	good := srcTxn("1.00", models.TransactionTypeDebit)
	bad := srcTxn("1.00", models.TransactionTypeDebit)
	bad.TransactionID = ""

	err := ValidateBatch([]models.SourceTransaction{good, good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction 2")
}
