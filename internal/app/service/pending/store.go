package pending

import (
	"context"
	"sync"
	"time"

	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/config"
	types "github.com/trainwise/backend/pkg/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Transaction is a staged purchase awaiting gateway confirmation. Nothing is
// written to the database until the gateway verifies the payment.
type Transaction struct {
	ID          string
	MemberID    string
	Kind        types.PurchaseKind
	Gateway     types.PaymentGateway
	AmountPaisa int64

	// Exactly one of the two is set, matching Kind. Both are nil on the
	// retry-pending path, where PaymentID references the durable row to
	// settle instead.
	Subscription *models.Subscription
	Booking      *models.Booking
	PaymentID    string

	// GatewayRef is the gateway-side handle needed for verification
	// (Khalti pidx, Dodo session id). Empty for eSewa.
	GatewayRef string

	StagedAt time.Time
}

// Store holds staged transactions in memory with a TTL. A restart drops all
// staged purchases; the member simply retries checkout.
type Store struct {
	mu  sync.Mutex
	txs map[string]*Transaction
	ttl time.Duration
	log *zap.SugaredLogger

	stop chan struct{}
}

func NewStore(cfg *config.Config, log *zap.SugaredLogger) *Store {
	return &Store{
		txs:  make(map[string]*Transaction),
		ttl:  cfg.PendingTTL(),
		log:  log,
		stop: make(chan struct{}),
	}
}

// Stage records a new staged transaction. Any earlier staged purchase of the
// same kind by the same member is evicted so a member cannot fan out
// parallel checkouts for one thing.
func (s *Store) Stage(tx *Transaction) {
	tx.StagedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, old := range s.txs {
		if old.MemberID == tx.MemberID && old.Kind == tx.Kind {
			delete(s.txs, id)
		}
	}
	s.txs[tx.ID] = tx
}

// Get returns the staged transaction without claiming it.
func (s *Store) Get(id string) (*Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if ok && s.expired(tx) {
		delete(s.txs, id)
		return nil, false
	}
	return tx, ok
}

// Take claims and removes the staged transaction. Only one caller can win;
// a replayed callback finds nothing and is treated as already processed.
func (s *Store) Take(id string) (*Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, false
	}
	delete(s.txs, id)
	if s.expired(tx) {
		return nil, false
	}
	return tx, true
}

// Restore puts a claimed transaction back after a failed commit so the
// callback can be retried.
func (s *Store) Restore(tx *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = tx
}

// Drop discards a staged transaction, if present.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txs, id)
}

func (s *Store) expired(tx *Transaction) bool {
	return s.ttl > 0 && time.Since(tx.StagedAt) > s.ttl
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, tx := range s.txs {
		if s.expired(tx) {
			delete(s.txs, id)
			n++
		}
	}
	if n > 0 {
		s.log.Infow("swept expired staged transactions", "count", n)
	}
}

func (s *Store) run() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Invoke(func(lc fx.Lifecycle, s *Store) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go s.run()
				return nil
			},
			OnStop: func(context.Context) error {
				close(s.stop)
				return nil
			},
		})
	}),
)
