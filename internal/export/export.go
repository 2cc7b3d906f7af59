// Package export renders reconciliation reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"meatledger/backend/internal/domain"
)

const (
	sheetSummary   = "Summary"
	sheetCustomers = "Customers"
	sheetSuppliers = "Suppliers"
	sheetErrors    = "Errors"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func WriteReport(w io.Writer, report *domain.BalanceReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	for _, name := range []string{sheetCustomers, sheetSuppliers, sheetErrors} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	status := "VALID"
	if !report.IsValid {
		status = "INVALID"
	}
	summary := [][]any{
		{"Status", status},
		{"Errors", len(report.Errors)},
		{"Customers", report.Summary.Totals.Customers},
		{"Suppliers", report.Summary.Totals.Suppliers},
		{"Orders", report.Summary.Totals.Orders},
		{"Transactions", report.Summary.Totals.Transactions},
		{"Customer discrepancies", len(report.Summary.CustomerDiscrepancies)},
		{"Supplier discrepancies", len(report.Summary.SupplierDiscrepancies)},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}

	if err := writeBalances(f, sheetCustomers, report.Summary.CustomerBalances, report.Summary.CustomerDiscrepancies); err != nil {
		return err
	}
	if err := writeBalances(f, sheetSuppliers, report.Summary.SupplierBalances, report.Summary.SupplierDiscrepancies); err != nil {
		return err
	}

	errorRows := [][]any{{"Error"}}
	for _, msg := range report.Errors {
		errorRows = append(errorRows, []any{msg})
	}
	if err := writeRows(f, sheetErrors, errorRows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeBalances(f *excelize.File, sheet string, balances domain.BalanceSet, discrepancies []domain.BalanceDiscrepancy) error {
	names := make(map[string]string, len(discrepancies))
	for _, d := range discrepancies {
		names[d.ID] = d.Name
	}

	ids := make([]string, 0, len(balances.Calculated))
	for id := range balances.Calculated {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := [][]any{{"ID", "Calculated", "Actual", "Discrepant"}}
	for _, id := range ids {
		_, discrepant := names[id]
		rows = append(rows, []any{
			id,
			money(balances.Calculated[id]),
			money(balances.Actual[id]),
			yesNo(discrepant),
		})
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
