package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/repository"
)

type fakeDB struct {
	txs      []*fakeTx
	beginErr error
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeDB) lastTx() *fakeTx {
	if len(f.txs) == 0 {
		return nil
	}
	return f.txs[len(f.txs)-1]
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}

type fakeEscalationRepo struct {
	mu        sync.Mutex
	records   map[string]domain.Escalation
	order     []string
	createErr error
	updateErr error
	locked    []string
}

func newFakeEscalationRepo() *fakeEscalationRepo {
	return &fakeEscalationRepo{records: map[string]domain.Escalation{}}
}

func (f *fakeEscalationRepo) Create(_ context.Context, _ repository.Querier, e *domain.Escalation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	f.records[e.ID] = *e
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeEscalationRepo) UpdateStatus(_ context.Context, _ repository.Querier, e *domain.Escalation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[e.ID]; !ok {
		return pgx.ErrNoRows
	}
	e.UpdatedAt = time.Now()
	f.records[e.ID] = *e
	return nil
}

func (f *fakeEscalationRepo) GetByID(_ context.Context, _ repository.Querier, id string) (*domain.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (f *fakeEscalationRepo) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.Escalation, error) {
	f.locked = append(f.locked, id)
	return f.GetByID(ctx, q, id)
}

func (f *fakeEscalationRepo) GetLatestForMarket(_ context.Context, _ repository.Querier, productID string, market domain.MarketRef) (*domain.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		e := f.records[f.order[i]]
		if e.ProductID == productID && e.Market == market {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeEscalationRepo) ListWithFilter(_ context.Context, _ repository.Querier, filter repository.EscalationFilter) ([]domain.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Escalation{}
	for _, id := range f.order {
		e := f.records[id]
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEscalationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	entries   []domain.EscalationHistoryEntry
	createErr error
	listErr   error
	lists     int
	clock     time.Time
	// afterList runs once, after the next list query has read its rows.
	afterList func()
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeHistoryRepo) Create(_ context.Context, _ repository.Querier, entry *domain.EscalationHistoryEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	entry.ID = fmt.Sprintf("h%03d", len(f.entries)+1)
	entry.ChangedAt = f.clock
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByEscalation(_ context.Context, _ repository.Querier, escalationID string) ([]domain.EscalationHistoryEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.snapshot(escalationID)
	if hook := f.afterList; hook != nil {
		f.afterList = nil
		hook()
	}
	return out, nil
}

func (f *fakeHistoryRepo) snapshot(escalationID string) []domain.EscalationHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := []domain.EscalationHistoryEntry{}
	for _, e := range f.entries {
		if e.EscalationID == escalationID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out
}

type fakeChangeLogRepo struct {
	entries   []domain.ChangeLogEntry
	createErr error
}

func (f *fakeChangeLogRepo) Create(_ context.Context, _ repository.Querier, entry *domain.ChangeLogEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = uuid.NewString()
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeProductRepo struct {
	products map[string]domain.Product
	err      error
}

func newFakeProductRepo(ids ...string) *fakeProductRepo {
	f := &fakeProductRepo{products: map[string]domain.Product{}}
	for _, id := range ids {
		f.products[id] = domain.Product{ID: id, Name: "Product " + id}
	}
	return f
}

func (f *fakeProductRepo) GetByID(_ context.Context, _ repository.Querier, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (f *fakeProductRepo) List(_ context.Context, _ repository.Querier, _ string, _, _ int) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.Product{}
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeWatchlistRepo struct {
	entries []domain.WatchlistEntry
	err     error
}

func (f *fakeWatchlistRepo) Create(_ context.Context, _ repository.Querier, entry *domain.WatchlistEntry) error {
	if f.err != nil {
		return f.err
	}
	for _, e := range f.entries {
		if e.UserID == entry.UserID && e.ProductID == entry.ProductID && sameMarket(e.Market, entry.Market) {
			return repository.ErrDuplicateWatch
		}
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeWatchlistRepo) Delete(_ context.Context, _ repository.Querier, userID, id string) error {
	for i, e := range f.entries {
		if e.ID == id && e.UserID == userID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeWatchlistRepo) ListByUser(_ context.Context, _ repository.Querier, userID string) ([]domain.WatchlistEntry, error) {
	out := []domain.WatchlistEntry{}
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeWatchlistRepo) ListByProduct(_ context.Context, _ repository.Querier, productID string) ([]domain.WatchlistEntry, error) {
	out := []domain.WatchlistEntry{}
	for _, e := range f.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, f.err
}

func sameMarket(a, b *domain.MarketRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fakeEtlRepo struct {
	statuses []domain.EtlStatus
	err      error
}

func (f *fakeEtlRepo) List(context.Context, repository.Querier) ([]domain.EtlStatus, error) {
	return f.statuses, f.err
}

type sentMail struct {
	recipients []string
	subject    string
	body       string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, recipients []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{recipients: recipients, subject: subject, body: body})
	return nil
}
