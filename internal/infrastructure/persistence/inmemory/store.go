// Package inmemory keeps every repository in process memory. WithinTx
// snapshots the whole state and restores it when the unit of work fails,
// and units of work run one at a time. Writes made outside a unit of work
// wait for the open one to finish, so a rollback never discards them.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
)

type state struct {
	customers    map[int64]customer.Customer
	methods      map[string]customer.PaymentMethod
	transactions map[string]transaction.Transaction
	ledger       map[string]ledger.Entry
	ledgerOrder  []string
	credit       []credit.Movement
	outbox       map[string]outbox.OutboxEvent
	outboxOrder  []string

	nextCustomerID int64
	nextItemID     int64
}

func newState() *state {
	return &state{
		customers:    make(map[int64]customer.Customer),
		methods:      make(map[string]customer.PaymentMethod),
		transactions: make(map[string]transaction.Transaction),
		ledger:       make(map[string]ledger.Entry),
		outbox:       make(map[string]outbox.OutboxEvent),
	}
}

func (s *state) clone() *state {
	out := &state{
		customers:      maps.Clone(s.customers),
		methods:        maps.Clone(s.methods),
		transactions:   make(map[string]transaction.Transaction, len(s.transactions)),
		ledger:         maps.Clone(s.ledger),
		ledgerOrder:    slices.Clone(s.ledgerOrder),
		credit:         slices.Clone(s.credit),
		outbox:         maps.Clone(s.outbox),
		outboxOrder:    slices.Clone(s.outboxOrder),
		nextCustomerID: s.nextCustomerID,
		nextItemID:     s.nextItemID,
	}
	for id, t := range s.transactions {
		out.transactions[id] = cloneTransaction(t)
	}
	return out
}

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
	Now  func() time.Time
}

var _ contracts.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState(), Now: time.Now}
}

func (s *Store) Repos() contracts.Repos {
	return contracts.Repos{
		Customers:      &CustomerRepository{s: s},
		PaymentMethods: &PaymentMethodRepository{s: s},
		Transactions:   &TransactionRepository{s: s},
		Ledger:         &LedgerRepository{s: s},
		StoreCredit:    &CreditRepository{s: s},
		Events:         &outbox.Recorder{Repo: &OutboxRepository{s: s}, Now: s.Now},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r contracts.Repos) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s), s.Repos())
}

type txKey struct{}

// guard holds back a write made outside a unit of work until no unit is
// open. Writes carrying the context of this store's open unit join it.
func (s *Store) guard(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// Outbox exposes the outbox repository for the dispatcher.
func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{s: s}
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = snapshot
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

func cloneTransaction(t transaction.Transaction) transaction.Transaction {
	t.Items = slices.Clone(t.Items)
	t.ChargeFailureLog = slices.Clone(t.ChargeFailureLog)
	return t
}
