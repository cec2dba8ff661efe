// Package deltasync keeps the knowledge store in step with a YNAB budget.
//
// Transactions are pulled incrementally: the first pull for a budget fetches a
// short recent window and every later pull asks only for changes since the
// stored server_knowledge, merging them into the cached set. Accounts and
// categories are refreshed in full.
package deltasync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/eshaffer321/ynab-mcp-go/internal/knowledge"
	"github.com/eshaffer321/ynab-mcp-go/internal/logging"
	"github.com/eshaffer321/ynab-mcp-go/internal/types"
	"github.com/eshaffer321/ynab-mcp-go/pkg/ynab"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultBootstrapDays is how far back the first transaction pull reaches
const DefaultBootstrapDays = 3

// ErrNoBudget is returned when neither the caller nor the store names a budget
var ErrNoBudget = errors.New("no budget id provided and no default budget set")

// Store is the subset of the knowledge store the syncer reads and writes
type Store interface {
	DefaultBudgetID() string
	LastKnowledgeOfServer() int64
	Accounts(budgetID string) ([]json.RawMessage, bool)
	Categories(budgetID string) ([]json.RawMessage, bool)
	Transactions(budgetID string) ([]json.RawMessage, bool)

	UpdateLastKnowledgeOfServer(serverKnowledge int64) error
	UpdateAccounts(budgetID string, accounts []json.RawMessage) error
	UpdateCategories(budgetID string, categories []json.RawMessage) error
	UpdateTransactions(budgetID string, transactions []json.RawMessage) error
	MergeTransactions(budgetID string, delta []json.RawMessage) error
}

// Options configures a Syncer
type Options struct {
	Logger types.Logger

	// BootstrapDays overrides DefaultBootstrapDays
	BootstrapDays int

	// Now overrides the clock
	Now func() time.Time
}

// Syncer moves data from the YNAB API into the knowledge store
type Syncer struct {
	client        *ynab.Client
	store         Store
	logger        types.Logger
	bootstrapDays int
	now           func() time.Time

	// txnMu serializes transaction pulls. cursorBudget names the budget the
	// stored cursor was last advanced for; empty until this Syncer has
	// completed a pull.
	txnMu        sync.Mutex
	cursorBudget string
}

// TransactionSync is the outcome of one transaction pull
type TransactionSync struct {
	BudgetID string

	// Transactions holds the non-deleted transactions of this response
	Transactions []*ynab.TransactionDetail

	// ServerKnowledge is the cursor returned by the server
	ServerKnowledge int64

	// Delta reports whether the pull used the stored cursor
	Delta bool
}

// New creates a Syncer
func New(client *ynab.Client, store Store, opts Options) *Syncer {
	s := &Syncer{
		client:        client,
		store:         store,
		logger:        opts.Logger,
		bootstrapDays: opts.BootstrapDays,
		now:           opts.Now,
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.bootstrapDays <= 0 {
		s.bootstrapDays = DefaultBootstrapDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ResolveBudget returns budgetID, falling back to the store default
func (s *Syncer) ResolveBudget(budgetID string) (string, error) {
	if budgetID != "" {
		return budgetID, nil
	}
	if def := s.store.DefaultBudgetID(); def != "" {
		return def, nil
	}
	return "", ErrNoBudget
}

// SyncTransactions pulls transactions for budgetID and caches them.
//
// The cursor is global while snapshots are per budget, so the stored cursor is
// only used when this Syncer last advanced it for the same budget and that
// budget has a cached transaction set. Otherwise the pull starts from a date
// window and replaces the cached set.
func (s *Syncer) SyncTransactions(ctx context.Context, budgetID string) (*TransactionSync, error) {
	if budgetID == "" {
		return nil, ErrNoBudget
	}

	s.txnMu.Lock()
	defer s.txnMu.Unlock()

	cursor := s.store.LastKnowledgeOfServer()
	_, cached := s.store.Transactions(budgetID)
	delta := cursor > 0 && cached && s.cursorBudget == budgetID
	if cursor > 0 && cached && !delta {
		s.logger.Debug("Stored cursor belongs to another budget", "budget_id", budgetID, "cursor_budget_id", s.cursorBudget)
	}

	query := s.client.Transactions.Query(budgetID)
	if delta {
		s.logger.Info("Using last_knowledge_of_server", "budget_id", budgetID, "server_knowledge", cursor)
		query = query.SinceKnowledge(cursor)
	} else {
		since := ynab.DaysAgo(s.now(), s.bootstrapDays)
		s.logger.Info("First pull, using since_date", "budget_id", budgetID, "since_date", since.String())
		query = query.Since(since)
	}

	records, serverKnowledge, err := query.Raw(ctx)
	if err != nil {
		return nil, err
	}

	if delta {
		err = s.store.MergeTransactions(budgetID, records)
	} else {
		err = s.store.UpdateTransactions(budgetID, records)
	}
	if err := s.storeError(err, "transactions", budgetID); err != nil {
		return nil, err
	}

	// the cursor is only advanced once its records are stored
	if err := s.store.UpdateLastKnowledgeOfServer(serverKnowledge); err != nil {
		s.logger.Warn("Failed to persist server knowledge", "server_knowledge", serverKnowledge, "error", err)
	}
	s.cursorBudget = budgetID
	s.logger.Info("Updated last_knowledge_of_server", "server_knowledge", serverKnowledge, "count", len(records))

	txns, err := decodeRecords[ynab.TransactionDetail](records)
	if err != nil {
		return nil, err
	}

	return &TransactionSync{
		BudgetID:        budgetID,
		Transactions:    liveTransactions(txns),
		ServerKnowledge: serverKnowledge,
		Delta:           delta,
	}, nil
}

// SyncAccounts fetches all accounts and caches the open ones
func (s *Syncer) SyncAccounts(ctx context.Context, budgetID string) ([]*ynab.Account, error) {
	if budgetID == "" {
		return nil, ErrNoBudget
	}

	list, err := s.client.Accounts.List(ctx, budgetID, 0)
	if err != nil {
		return nil, err
	}

	accounts := ynab.OpenAccounts(list.Accounts)
	records, err := encodeRecords(accounts)
	if err != nil {
		return nil, err
	}

	if err := s.storeError(s.store.UpdateAccounts(budgetID, records), "accounts", budgetID); err != nil {
		return nil, err
	}

	return accounts, nil
}

// SyncCategories fetches all categories and caches the visible ones
func (s *Syncer) SyncCategories(ctx context.Context, budgetID string) ([]*ynab.Category, error) {
	if budgetID == "" {
		return nil, ErrNoBudget
	}

	list, err := s.client.Categories.List(ctx, budgetID, 0)
	if err != nil {
		return nil, err
	}

	categories := ynab.VisibleCategories(list.Flatten())
	records, err := encodeRecords(categories)
	if err != nil {
		return nil, err
	}

	if err := s.storeError(s.store.UpdateCategories(budgetID, records), "categories", budgetID); err != nil {
		return nil, err
	}

	return categories, nil
}

// PrimeBudget fills the account and category cache for budgetID when either
// is missing. It reports whether anything was fetched.
func (s *Syncer) PrimeBudget(ctx context.Context, budgetID string) (bool, error) {
	if budgetID == "" {
		return false, ErrNoBudget
	}

	_, haveAccounts := s.store.Accounts(budgetID)
	_, haveCategories := s.store.Categories(budgetID)
	if haveAccounts && haveCategories {
		return false, nil
	}

	s.logger.Info("Getting accounts and categories", "budget_id", budgetID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.SyncAccounts(gctx, budgetID)
		return err
	})
	g.Go(func() error {
		_, err := s.SyncCategories(gctx, budgetID)
		return err
	})

	if err := g.Wait(); err != nil {
		return false, errors.Wrapf(err, "failed to prime budget %s", budgetID)
	}
	return true, nil
}

// CachedAccounts decodes the cached accounts of budgetID
func (s *Syncer) CachedAccounts(budgetID string) ([]*ynab.Account, bool, error) {
	recs, ok := s.store.Accounts(budgetID)
	if !ok {
		return nil, false, nil
	}
	accounts, err := decodeRecords[ynab.Account](recs)
	return accounts, true, err
}

// CachedCategories decodes the cached categories of budgetID
func (s *Syncer) CachedCategories(budgetID string) ([]*ynab.Category, bool, error) {
	recs, ok := s.store.Categories(budgetID)
	if !ok {
		return nil, false, nil
	}
	categories, err := decodeRecords[ynab.Category](recs)
	return categories, true, err
}

// CachedTransactions decodes the cached, non-deleted transactions of budgetID
func (s *Syncer) CachedTransactions(budgetID string) ([]*ynab.TransactionDetail, bool, error) {
	recs, ok := s.store.Transactions(budgetID)
	if !ok {
		return nil, false, nil
	}
	txns, err := decodeRecords[ynab.TransactionDetail](recs)
	if err != nil {
		return nil, true, err
	}
	return liveTransactions(txns), true, nil
}

// storeError turns rejected records into an error and logs persistence
// failures, whose mutation is already applied in memory.
func (s *Syncer) storeError(err error, what, budgetID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, knowledge.ErrMissingID) || errors.Is(err, knowledge.ErrInvalidRecord) {
		return errors.Wrapf(err, "cannot cache %s for budget %s", what, budgetID)
	}
	s.logger.Warn("Failed to persist "+what, "budget_id", budgetID, "error", err)
	return nil
}

func liveTransactions(txns []*ynab.TransactionDetail) []*ynab.TransactionDetail {
	out := make([]*ynab.TransactionDetail, 0, len(txns))
	for _, t := range txns {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return out
}
