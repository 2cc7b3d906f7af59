package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/ledger"
)

// buildReport is the pure part of Validate: the same dataset always yields
// the same report.
func buildReport(data *dataset) *domain.BalanceReport {
	customerIDs := customerSet(data.customers)
	supplierIDs := supplierSet(data.suppliers)

	calculatedCustomers := ledger.ProjectCustomerBalances(data.customers, data.orders, data.transactions)
	calculatedSuppliers := ledger.ProjectSupplierBalances(data.suppliers, data.transactions)

	errs := make([]string, 0)
	customerDiscrepancies := make([]domain.BalanceDiscrepancy, 0)
	supplierDiscrepancies := make([]domain.BalanceDiscrepancy, 0)
	actualCustomers := make(map[string]decimal.Decimal, len(data.customers))
	actualSuppliers := make(map[string]decimal.Decimal, len(data.suppliers))

	// A repeated id is compared once, against its first record.
	for _, c := range data.customers {
		if _, seen := actualCustomers[c.ID]; seen {
			continue
		}
		actual := ledger.AmountOrZero(c.PendingAmount)
		actualCustomers[c.ID] = actual
		if d, ok := compare(c.ID, c.Name, calculatedCustomers[c.ID], actual); ok {
			customerDiscrepancies = append(customerDiscrepancies, d)
			errs = append(errs, mismatchMessage("Customer", d))
		}
	}
	for _, s := range data.suppliers {
		if _, seen := actualSuppliers[s.ID]; seen {
			continue
		}
		actual := ledger.AmountOrZero(s.Debt)
		actualSuppliers[s.ID] = actual
		if d, ok := compare(s.ID, s.Name, calculatedSuppliers[s.ID], actual); ok {
			supplierDiscrepancies = append(supplierDiscrepancies, d)
			errs = append(errs, mismatchMessage("Supplier", d))
		}
	}

	for _, o := range findOrphans(customerIDs, supplierIDs, data.orders, data.transactions) {
		errs = append(errs, orphanMessage(o))
	}

	errs = append(errs, duplicateBalanceMessages("customer", "pendingAmount", data.customers, func(c domain.Customer) decimal.Decimal {
		return ledger.AmountOrZero(c.PendingAmount)
	})...)
	errs = append(errs, duplicateBalanceMessages("supplier", "debt", data.suppliers, func(s domain.Supplier) decimal.Decimal {
		return ledger.AmountOrZero(s.Debt)
	})...)
	errs = append(errs, duplicateMessages("order", recordIDs(data.orders))...)
	errs = append(errs, duplicateMessages("transaction", recordIDs(data.transactions))...)

	return &domain.BalanceReport{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: make([]string, 0),
		Summary: domain.BalanceSummary{
			Totals: domain.CollectionCounts{
				Customers:    len(data.customers),
				Suppliers:    len(data.suppliers),
				Orders:       len(data.orders),
				Transactions: len(data.transactions),
			},
			CustomerBalances: domain.BalanceSet{
				Calculated: calculatedCustomers,
				Actual:     actualCustomers,
			},
			SupplierBalances: domain.BalanceSet{
				Calculated: calculatedSuppliers,
				Actual:     actualSuppliers,
			},
			CustomerDiscrepancies: customerDiscrepancies,
			SupplierDiscrepancies: supplierDiscrepancies,
		},
	}
}

// compare measures actual against the floored derived balance, which is the
// value a correction would write.
func compare(id string, name string, calculated decimal.Decimal, actual decimal.Decimal) (domain.BalanceDiscrepancy, bool) {
	expected := ledger.Floor(calculated)
	difference := actual.Sub(expected)
	if difference.Abs().LessThanOrEqual(tolerance) {
		return domain.BalanceDiscrepancy{}, false
	}
	return domain.BalanceDiscrepancy{
		ID:         id,
		Name:       name,
		Calculated: calculated,
		Expected:   expected,
		Actual:     actual,
		Difference: difference,
	}, true
}

func mismatchMessage(kind string, d domain.BalanceDiscrepancy) string {
	msg := fmt.Sprintf("%s %s (%s): Balance mismatch - Calculated: %s, Actual: %s, Difference: %s",
		kind, d.Name, d.ID, d.Calculated.String(), d.Actual.String(), d.Difference.String())
	if !d.Expected.Equal(d.Calculated) {
		msg += fmt.Sprintf(" (expected %s after flooring)", d.Expected.String())
	}
	return msg
}

func customerSet(customers []domain.Customer) map[string]bool {
	ids := make(map[string]bool, len(customers))
	for _, c := range customers {
		ids[c.ID] = true
	}
	return ids
}

func supplierSet(suppliers []domain.Supplier) map[string]bool {
	ids := make(map[string]bool, len(suppliers))
	for _, s := range suppliers {
		ids[s.ID] = true
	}
	return ids
}
