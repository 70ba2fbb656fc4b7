package importer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookkeeper/internal/core"
)

func TestParseBasicExport(t *testing.T) {
	input := `01/15/2025,ACME PAYROLL,,2000.00,5200.00
01/16/2025,COFFEE SHOP,3.50,,5196.50
01/17/2025,"SUPPLIES, INC",20857.10,,-15660.60
`
	result, err := Parse(strings.NewReader(input), Limits{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 3)
	assert.Empty(t, result.Errors)

	payroll := result.Candidates[0]
	assert.Equal(t, "2025-01-15", payroll.Date.String())
	assert.Equal(t, "ACME PAYROLL", payroll.Description)
	assert.True(t, payroll.Amount.Equal(decimal.RequireFromString("2000.00")), "credit is positive, got %s", payroll.Amount)
	assert.False(t, payroll.NeedsReview)

	coffee := result.Candidates[1]
	assert.True(t, coffee.Amount.Equal(decimal.RequireFromString("-3.50")), "debit is negative, got %s", coffee.Amount)
	assert.False(t, coffee.NeedsReview)

	supplies := result.Candidates[2]
	assert.Equal(t, `SUPPLIES, INC`, supplies.Description, "quoted commas survive")
	assert.True(t, supplies.Amount.Equal(decimal.RequireFromString("-20857.10")), "got %s", supplies.Amount)
	assert.True(t, supplies.Balance.Equal(decimal.RequireFromString("-15660.60")))
}

func TestParseSkipsHeaderRow(t *testing.T) {
	input := `Date,Description,Debit,Credit,Balance
01/15/2025,ACME PAYROLL,,2000.00,5200.00
`
	result, err := Parse(strings.NewReader(input), Limits{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 2, result.Candidates[0].Line, "line numbers count the header")
}

func TestParseWithoutHeaderRow(t *testing.T) {
	input := `01/15/2025,ACME PAYROLL,,2000.00,5200.00
`
	result, err := Parse(strings.NewReader(input), Limits{})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 1)
}

func TestParseCollectsRowErrors(t *testing.T) {
	input := `01/15/2025,ACME PAYROLL,,2000.00,5200.00
not-a-date,BAD ROW,1.00,,100.00
01/16/2025,SHORT ROW
01/17/2025,,5.00,,95.00
01/18/2025,GOOD ROW,5.00,,90.00
`
	result, err := Parse(strings.NewReader(input), Limits{})
	require.NoError(t, err, "row problems never fail the batch")
	assert.Len(t, result.Candidates, 2)
	require.Len(t, result.Errors, 3)

	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Message, "invalid date")
	assert.Equal(t, 3, result.Errors[1].Line)
	assert.Contains(t, result.Errors[1].Message, "expected 5 fields")
	assert.Equal(t, 4, result.Errors[2].Line)
	assert.Contains(t, result.Errors[2].Message, "empty description")
}

func TestParseFlagsAmbiguousAmounts(t *testing.T) {
	input := `01/15/2025,BOTH BLANK,,,100.00
01/16/2025,BOTH SET,10.00,25.00,115.00
`
	result, err := Parse(strings.NewReader(input), Limits{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)

	blank := result.Candidates[0]
	assert.True(t, blank.Amount.IsZero())
	assert.True(t, blank.NeedsReview, "zero-amount row is kept but flagged")

	both := result.Candidates[1]
	assert.True(t, both.Amount.Equal(decimal.RequireFromString("25.00")), "credit wins when both are set, got %s", both.Amount)
	assert.True(t, both.NeedsReview)
}

func TestParseMoneyFormats(t *testing.T) {
	input := `01/15/2025,FORMATTED,"1,234.56",,100.00
01/16/2025,DOLLAR SIGN,,$42.00,142.00
01/17/2025,GARBAGE MONEY,abc,,100.00
`
	result, err := Parse(strings.NewReader(input), Limits{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 3)

	assert.True(t, result.Candidates[0].Amount.Equal(decimal.RequireFromString("-1234.56")), "got %s", result.Candidates[0].Amount)
	assert.True(t, result.Candidates[1].Amount.Equal(decimal.RequireFromString("42.00")), "got %s", result.Candidates[1].Amount)

	// Unparseable money reads as blank, so the row is flagged, not rejected.
	garbage := result.Candidates[2]
	assert.True(t, garbage.Amount.IsZero())
	assert.True(t, garbage.NeedsReview)
}

func TestParseRowLimit(t *testing.T) {
	input := `01/15/2025,ROW ONE,1.00,,99.00
01/16/2025,ROW TWO,1.00,,98.00
01/17/2025,ROW THREE,1.00,,97.00
`
	_, err := Parse(strings.NewReader(input), Limits{MaxRows: 2})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr, "row overrun fails the whole batch")
	assert.Contains(t, verr.Message, "row limit")
}

func TestParseByteLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("01/15/2025,SOME LONG DESCRIPTION PADDING OUT THE ROW,1.00,,99.00\n")
	}
	_, err := Parse(strings.NewReader(b.String()), Limits{MaxBytes: 256})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "byte limit")
}

func TestDeriveAmount(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name        string
		debit       string
		credit      string
		want        string
		needsReview bool
	}{
		{"debit only", "3.50", "0", "-3.50", false},
		{"credit only", "0", "20857.10", "20857.10", false},
		{"both zero", "0", "0", "0", true},
		{"both set prefers credit", "10.00", "25.00", "25.00", true},
		{"both set credit zeroed out", "10.00", "-5.00", "-10.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, review := deriveAmount(d(tt.debit), d(tt.credit))
			assert.True(t, got.Equal(d(tt.want)), "amount = %s, want %s", got, tt.want)
			assert.Equal(t, tt.needsReview, review)
		})
	}
}
