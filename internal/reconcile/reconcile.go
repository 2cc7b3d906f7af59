// Package reconcile audits the cached balances on customers and suppliers
// against the balances derived from order and transaction history.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"meatledger/backend/internal/audit"
	"meatledger/backend/internal/cache"
	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/ledger"
	"meatledger/backend/internal/lock"
	"meatledger/backend/internal/store"
)

var (
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrRunInProgress        = errors.New("reconciliation already in progress")
)

// tolerance is the largest absolute difference between a stored and a
// derived balance that is not reported. It is fixed.
var tolerance = decimal.New(1, -2)

// Tolerance returns the fixed 0.01 reporting threshold.
func Tolerance() decimal.Decimal {
	return tolerance
}

const runLockKey = "meatledger:reconciliation:run"

type Options struct {
	LockTTL   time.Duration
	ReportTTL time.Duration
}

type Reconciler struct {
	repo      *store.Repository
	locker    lock.Locker
	cache     cache.ReportCache
	audit     *audit.Recorder
	log       *zap.Logger
	lockTTL   time.Duration
	reportTTL time.Duration

	// generation counts invalidations so Report can tell whether one landed
	// while it was building.
	generation atomic.Uint64
}

func New(repo *store.Repository, locker lock.Locker, reportCache cache.ReportCache, recorder *audit.Recorder, log *zap.Logger, opts Options) *Reconciler {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = audit.NewRecorder(repo.AuditLogs, log)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = time.Minute
	}
	return &Reconciler{
		repo:      repo,
		locker:    locker,
		cache:     reportCache,
		audit:     recorder,
		log:       log.Named("reconcile"),
		lockTTL:   opts.LockTTL,
		reportTTL: opts.ReportTTL,
	}
}

type dataset struct {
	customers    []domain.Customer
	suppliers    []domain.Supplier
	orders       []domain.Order
	transactions []domain.Transaction
}

// load reads the four collections. Backends that support it answer from one
// snapshot; otherwise the reads are separate round trips and a write landing
// between them makes the report stale.
func (r *Reconciler) load(ctx context.Context) (*dataset, error) {
	if snap, ok := r.repo.Docs.(store.Snapshotter); ok {
		return r.loadSnapshot(ctx, snap)
	}

	var (
		data dataset
		err  error
	)
	if data.customers, err = r.repo.Customers.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	if data.suppliers, err = r.repo.Suppliers.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}
	if data.orders, err = r.repo.Orders.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if data.transactions, err = r.repo.Transactions.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return &data, nil
}

func (r *Reconciler) loadSnapshot(ctx context.Context, snap store.Snapshotter) (*dataset, error) {
	docs, err := snap.Snapshot(ctx,
		store.CollectionCustomers,
		store.CollectionSuppliers,
		store.CollectionOrders,
		store.CollectionTransactions,
	)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var data dataset
	if data.customers, err = store.DecodeAll[domain.Customer](store.CollectionCustomers, docs[store.CollectionCustomers]); err != nil {
		return nil, err
	}
	if data.suppliers, err = store.DecodeAll[domain.Supplier](store.CollectionSuppliers, docs[store.CollectionSuppliers]); err != nil {
		return nil, err
	}
	if data.orders, err = store.DecodeAll[domain.Order](store.CollectionOrders, docs[store.CollectionOrders]); err != nil {
		return nil, err
	}
	if data.transactions, err = store.DecodeAll[domain.Transaction](store.CollectionTransactions, docs[store.CollectionTransactions]); err != nil {
		return nil, err
	}
	return &data, nil
}

// Validate builds a fresh report. It never writes.
func (r *Reconciler) Validate(ctx context.Context) (*domain.BalanceReport, error) {
	data, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	report := buildReport(data)

	for _, d := range report.Summary.CustomerDiscrepancies {
		r.log.Warn("customer balance mismatch", discrepancyFields(d)...)
	}
	for _, d := range report.Summary.SupplierDiscrepancies {
		r.log.Warn("supplier balance mismatch", discrepancyFields(d)...)
	}
	return report, nil
}

// Report serves the cached report when one is available and refresh is
// false. Cache failures are logged and fall through to Validate.
func (r *Reconciler) Report(ctx context.Context, refresh bool) (*domain.BalanceReport, error) {
	if !refresh {
		cached, ok, err := r.cache.Get(ctx, cache.ReportKey)
		if err != nil {
			r.log.Warn("report cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	gen := r.generation.Load()
	report, err := r.Validate(ctx)
	if err != nil {
		return nil, err
	}
	if r.generation.Load() != gen {
		return report, nil
	}
	if err := r.cache.Set(ctx, cache.ReportKey, report, r.reportTTL); err != nil {
		r.log.Warn("report cache write failed", zap.Error(err))
	}
	// An invalidation racing the write above must not leave it behind.
	if r.generation.Load() != gen {
		r.dropCached(ctx)
	}
	return report, nil
}

// Invalidate drops the cached report. Callers that change balances or
// references should call it. Invalidations from other processes sharing the
// Redis cache are not seen by an in-flight Report here, so a report built
// across such a write may stay cached for up to one report TTL.
func (r *Reconciler) Invalidate(ctx context.Context) {
	r.generation.Add(1)
	r.dropCached(ctx)
}

func (r *Reconciler) dropCached(ctx context.Context) {
	if err := r.cache.Invalidate(ctx, cache.ReportKey); err != nil {
		r.log.Warn("report cache invalidation failed", zap.Error(err))
	}
}

// FixDiscrepancies rewrites the cached balance of every discrepant customer
// and supplier to its derived value, floored at zero. Writes are issued one
// at a time with no rollback: on failure the corrections already applied are
// returned together with the error.
//
// The run lock only keeps two reconciliations apart. An order or payment
// recorded between the validation read and a correction write is overwritten
// by the stale derived value, so do not run this against live traffic.
func (r *Reconciler) FixDiscrepancies(ctx context.Context) (*domain.FixResult, error) {
	lease, err := r.obtain(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(lease)
	defer r.Invalidate(ctx)

	report, err := r.Validate(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.FixResult{
		Corrections: make([]domain.BalanceCorrection, 0),
		Report:      report,
	}

	for _, d := range report.Summary.CustomerDiscrepancies {
		corrected := ledger.Floor(d.Calculated)
		if _, err := r.repo.Customers.Update(ctx, d.ID, map[string]any{"pendingAmount": domain.NewAmount(corrected)}); err != nil {
			return result, fmt.Errorf("correct customer %s: %w", d.ID, err)
		}
		result.Corrections = append(result.Corrections, r.corrected(ctx, domain.EntityCustomer, d, corrected))
	}

	for _, d := range report.Summary.SupplierDiscrepancies {
		corrected := ledger.Floor(d.Calculated)
		if _, err := r.repo.Suppliers.Update(ctx, d.ID, map[string]any{"debt": domain.NewAmount(corrected)}); err != nil {
			return result, fmt.Errorf("correct supplier %s: %w", d.ID, err)
		}
		result.Corrections = append(result.Corrections, r.corrected(ctx, domain.EntitySupplier, d, corrected))
	}

	r.log.Info("reconciliation fix finished", zap.Int("corrections", len(result.Corrections)))
	return result, nil
}

func (r *Reconciler) corrected(ctx context.Context, entityType domain.EntityType, d domain.BalanceDiscrepancy, corrected decimal.Decimal) domain.BalanceCorrection {
	r.log.Info("balance corrected",
		zap.String("entity_type", string(entityType)),
		zap.String("id", d.ID),
		zap.String("previous", d.Actual.String()),
		zap.String("corrected", corrected.String()),
	)
	r.audit.Record(ctx, "reconcile.fix_balance", string(entityType), d.ID,
		fmt.Sprintf("previous=%s corrected=%s", d.Actual.String(), corrected.String()))

	return domain.BalanceCorrection{
		EntityType: entityType,
		ID:         d.ID,
		Name:       d.Name,
		Previous:   d.Actual,
		Corrected:  corrected,
	}
}

// PurgeOrphans deletes orders and transactions that reference a missing
// customer or supplier. Without confirm it only lists them and returns
// ErrConfirmationRequired. Deletion is permanent.
func (r *Reconciler) PurgeOrphans(ctx context.Context, confirm bool) (*domain.PurgeResult, error) {
	lease, err := r.obtain(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(lease)

	data, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	orphans := findOrphans(customerSet(data.customers), supplierSet(data.suppliers), data.orders, data.transactions)
	result := &domain.PurgeResult{Confirmed: confirm, Orphans: orphans}

	if len(orphans) == 0 {
		return result, nil
	}
	if !confirm {
		return result, ErrConfirmationRequired
	}

	defer r.Invalidate(ctx)
	for _, o := range orphans {
		var removed bool
		if o.Collection == "orders" {
			removed, err = r.repo.Orders.Delete(ctx, o.ID)
		} else {
			removed, err = r.repo.Transactions.Delete(ctx, o.ID)
		}
		if err != nil {
			return result, fmt.Errorf("delete orphaned %s %s: %w", o.Collection, o.ID, err)
		}
		if !removed {
			continue
		}
		result.Deleted++
		r.log.Info("orphan deleted", zap.String("collection", o.Collection), zap.String("id", o.ID))
		r.audit.Record(ctx, "reconcile.purge_orphan", o.Collection, o.ID,
			fmt.Sprintf("%s=%s", o.EntityType, o.EntityID))
	}
	return result, nil
}

func (r *Reconciler) obtain(ctx context.Context) (lock.Lease, error) {
	lease, err := r.locker.Obtain(ctx, runLockKey, r.lockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("obtain reconciliation lock: %w", err)
	}
	return lease, nil
}

func (r *Reconciler) release(lease lock.Lease) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lease.Release(ctx); err != nil {
		r.log.Warn("failed to release reconciliation lock", zap.Error(err))
	}
}

func discrepancyFields(d domain.BalanceDiscrepancy) []zap.Field {
	return []zap.Field{
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.String("calculated", d.Calculated.String()),
		zap.String("actual", d.Actual.String()),
		zap.String("difference", d.Difference.String()),
	}
}
