package ledger

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meatledger/backend/internal/domain"
)

func amount(v string) domain.Amount {
	return domain.AmountFromString(v)
}

func TestProjectCustomerBalances(t *testing.T) {
	customers := []domain.Customer{{ID: "C1"}, {ID: "C2"}, {ID: "C3"}}
	orders := []domain.Order{
		{ID: "o1", CustomerID: "C1", Total: amount("500"), Status: domain.OrderPending},
		{ID: "o2", CustomerID: "C2", Total: amount("1000"), Status: domain.OrderPending},
		{ID: "o3", CustomerID: "C2", Total: amount("400"), Status: domain.OrderPaid},
		{ID: "o4", CustomerID: "ghost", Total: amount("900"), Status: domain.OrderPending},
		{ID: "o5", CustomerID: "C3", Total: domain.Amount{}},
	}
	transactions := []domain.Transaction{
		{ID: "t1", EntityID: "C2", EntityType: domain.EntityCustomer, Type: domain.TransactionReceipt, Amount: amount("300")},
		{ID: "t2", EntityID: "C2", EntityType: domain.EntityCustomer, Type: domain.TransactionPayment, Amount: amount("50")},
		{ID: "t3", EntityID: "ghost", EntityType: domain.EntityCustomer, Type: domain.TransactionReceipt, Amount: amount("10")},
		{ID: "t4", EntityID: "C3", EntityType: domain.EntityCustomer, Type: domain.TransactionReceipt, Amount: amount("25")},
	}

	got := ProjectCustomerBalances(customers, orders, transactions)

	require.Len(t, got, 3)
	assert.Equal(t, "500", got["C1"].String())
	assert.Equal(t, "700", got["C2"].String())
	assert.Equal(t, "-25", got["C3"].String(), "negative balances are kept during projection")
	_, hasGhost := got["ghost"]
	assert.False(t, hasGhost)
}

func TestProjectSupplierBalances(t *testing.T) {
	suppliers := []domain.Supplier{{ID: "S1"}, {ID: "S2"}}
	transactions := []domain.Transaction{
		{EntityID: "S1", EntityType: domain.EntitySupplier, Type: domain.TransactionExpense, Amount: amount("1500")},
		{EntityID: "S1", EntityType: domain.EntitySupplier, Type: domain.TransactionExpense, Amount: amount("500")},
		{EntityID: "S1", EntityType: domain.EntitySupplier, Type: domain.TransactionPayment, Amount: amount("2000")},
		{EntityID: "S2", EntityType: domain.EntitySupplier, Type: domain.TransactionExpense, Amount: amount("800")},
		{EntityID: "S2", EntityType: domain.EntitySupplier, Type: domain.TransactionReceipt, Amount: amount("800")},
		{EntityID: "S2", EntityType: domain.EntityCustomer, Type: domain.TransactionPayment, Amount: amount("100")},
		{EntityID: "S9", EntityType: domain.EntitySupplier, Type: domain.TransactionExpense, Amount: amount("1")},
	}

	got := ProjectSupplierBalances(suppliers, transactions)

	require.Len(t, got, 2)
	assert.True(t, got["S1"].IsZero())
	assert.Equal(t, "800", got["S2"].String())
}

func TestProjectCustomerBalancesMatchesReferenceLoop(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := []domain.OrderStatus{domain.OrderPending, domain.OrderPaid, ""}
	txTypes := []domain.TransactionType{domain.TransactionReceipt, domain.TransactionPayment, domain.TransactionExpense}

	for round := 0; round < 25; round++ {
		customers := make([]domain.Customer, 6)
		for i := range customers {
			customers[i] = domain.Customer{ID: fmt.Sprintf("C%d", i)}
		}
		orders := make([]domain.Order, 40)
		for i := range orders {
			orders[i] = domain.Order{
				ID:         fmt.Sprintf("o%d", i),
				CustomerID: fmt.Sprintf("C%d", rng.Intn(8)),
				Total:      domain.NewAmount(decimal.New(rng.Int63n(100000), -2)),
				Status:     statuses[rng.Intn(len(statuses))],
			}
		}
		transactions := make([]domain.Transaction, 30)
		for i := range transactions {
			transactions[i] = domain.Transaction{
				ID:         fmt.Sprintf("t%d", i),
				EntityID:   fmt.Sprintf("C%d", rng.Intn(8)),
				EntityType: domain.EntityCustomer,
				Type:       txTypes[rng.Intn(len(txTypes))],
				Amount:     domain.NewAmount(decimal.New(rng.Int63n(50000), -2)),
			}
		}

		got := ProjectCustomerBalances(customers, orders, transactions)

		for _, c := range customers {
			unpaid := decimal.Zero
			for _, o := range orders {
				if o.CustomerID == c.ID && o.Status != domain.OrderPaid {
					unpaid = unpaid.Add(o.Total.Value)
				}
			}
			receipts := decimal.Zero
			for _, tx := range transactions {
				if tx.EntityID == c.ID && tx.Type == domain.TransactionReceipt {
					receipts = receipts.Add(tx.Amount.Value)
				}
			}
			want := unpaid.Sub(receipts)
			assert.Truef(t, want.Equal(got[c.ID]), "round %d customer %s: want %s got %s", round, c.ID, want, got[c.ID])
		}
	}
}
