package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"meatledger/backend/internal/domain"
)

func TestWriteReport(t *testing.T) {
	report := &domain.BalanceReport{
		IsValid:  false,
		Errors:   []string{"Orphaned order o9 references non-existent customer ghost"},
		Warnings: []string{},
		Summary: domain.BalanceSummary{
			Totals: domain.CollectionCounts{Customers: 2, Orders: 3},
			CustomerBalances: domain.BalanceSet{
				Calculated: map[string]decimal.Decimal{"C2": decimal.NewFromInt(700), "C1": decimal.NewFromInt(500)},
				Actual:     map[string]decimal.Decimal{"C2": decimal.NewFromInt(1000), "C1": decimal.NewFromInt(500)},
			},
			SupplierBalances: domain.BalanceSet{
				Calculated: map[string]decimal.Decimal{},
				Actual:     map[string]decimal.Decimal{},
			},
			CustomerDiscrepancies: []domain.BalanceDiscrepancy{{ID: "C2", Name: "Hotel Mira"}},
			SupplierDiscrepancies: []domain.BalanceDiscrepancy{},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetSummary, sheetCustomers, sheetSuppliers, sheetErrors}, f.GetSheetList())

	status, err := f.GetCellValue(sheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "INVALID", status)

	rows, err := f.GetRows(sheetCustomers)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"C1", "500", "500", "no"}, rows[1])
	assert.Equal(t, []string{"C2", "700", "1000", "yes"}, rows[2])

	msg, err := f.GetCellValue(sheetErrors, "A2")
	require.NoError(t, err)
	assert.Equal(t, report.Errors[0], msg)
}
