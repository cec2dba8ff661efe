// Package knowledge keeps a small file-backed cache of YNAB state: the last
// server_knowledge cursor, the default budget id, and per-budget snapshots of
// accounts, categories and transactions.
//
// Records are stored as opaque JSON. The store never interprets them, except
// for the "id" and "deleted" fields when merging a delta.
package knowledge

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/eshaffer321/ynab-mcp-go/internal/logging"
	"github.com/eshaffer321/ynab-mcp-go/internal/types"
	"github.com/pkg/errors"
)

const (
	// DefaultDir is used when Options.Dir is empty
	DefaultDir = "data"

	// FileName is the name of the persisted store inside Dir
	FileName = "server-knowledge.json"
)

var (
	// ErrStoreClosed is returned by mutators after Close. The mutation is still applied in memory.
	ErrStoreClosed = errors.New("knowledge store closed")

	// ErrMissingID is returned when a merged record has no "id" field
	ErrMissingID = errors.New("record has no id")

	// ErrInvalidRecord is returned when a record is not valid JSON
	ErrInvalidRecord = errors.New("record is not valid JSON")
)

// Options configures a Store
type Options struct {
	// Dir holds the store file. Defaults to DefaultDir.
	Dir string

	// DefaultBudgetID seeds default_budget_id when no file exists yet
	DefaultBudgetID string

	// Logger receives load/save diagnostics
	Logger types.Logger
}

// BudgetSnapshot is the cached copy of one budget. A nil field means the
// collection has never been written; an empty, non-nil one was written empty.
type BudgetSnapshot struct {
	Accounts     []json.RawMessage `json:"accounts,omitzero"`
	Categories   []json.RawMessage `json:"categories,omitzero"`
	Transactions []json.RawMessage `json:"transactions,omitzero"`
}

// state is the persisted document. Field order is the on-disk key order.
type state struct {
	LastKnowledgeOfServer int64                      `json:"last_knowledge_of_server"`
	DefaultBudgetID       string                     `json:"default_budget_id"`
	Budgets               map[string]*BudgetSnapshot `json:"budgets"`
}

// Store is the knowledge cache. It is safe for concurrent use.
//
// Every mutator applies its change in memory and then writes the whole store
// to disk before returning. Writes carry a sequence number so a slow, older
// write can never overwrite a newer one.
type Store struct {
	dir             string
	path            string
	defaultBudgetID string
	logger          types.Logger

	mu          sync.RWMutex
	state       *state
	initialized bool
	persist     bool
	closed      bool
	seq         uint64

	saveMu  sync.Mutex
	written uint64
}

// New builds a store holding the default state. It does no I/O; call Init
// before relying on persistence.
func New(opts Options) *Store {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Store{
		dir:             dir,
		path:            filepath.Join(dir, FileName),
		defaultBudgetID: opts.DefaultBudgetID,
		logger:          logger,
	}
	s.state = s.defaults()

	return s
}

// Open creates a store and loads it from disk
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := New(opts)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Init loads the store from disk.
//
// A missing file is a first run: the current state is kept and written out.
// A file that does not parse is renamed aside and replaced with the current
// state. Any other failure leaves the store in degraded mode, where mutations
// only live in memory. Storage problems are logged, never returned; the only
// error is a done context.
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("Error initializing storage", "dir", s.dir, "error", err)
		s.setPersist(false)
		return nil
	}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		loaded, decodeErr := decodeState(data)
		if decodeErr == nil {
			s.mu.Lock()
			s.state = loaded
			s.persist = true
			s.mu.Unlock()
			s.logger.Info("Loaded existing server knowledge from storage", "path", s.path)
			return nil
		}

		s.logger.Error("Error parsing server knowledge", "path", s.path, "error", decodeErr)
		moved, quarantineErr := quarantine(s.path)
		if quarantineErr != nil {
			s.logger.Error("Error quarantining corrupt server knowledge", "path", s.path, "error", quarantineErr)
			s.setPersist(false)
			return nil
		}
		s.logger.Warn("Moved corrupt server knowledge aside", "from", s.path, "to", moved)

	case errors.Is(err, fs.ErrNotExist):
		// first run

	default:
		s.logger.Error("Error loading server knowledge", "path", s.path, "error", err)
		s.setPersist(false)
		return nil
	}

	s.setPersist(true)
	if err := s.save(); err == nil {
		s.logger.Info("Created new server knowledge storage file", "path", s.path)
	}
	return nil
}

// Close waits for an in-flight save and stops further persistence
func (s *Store) Close() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Path returns the location of the store file
func (s *Store) Path() string {
	return s.path
}

// Degraded reports whether Init failed and saves are being skipped
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && !s.persist
}

// DefaultBudgetID returns the default budget id, or "" when unset
func (s *Store) DefaultBudgetID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DefaultBudgetID
}

// LastKnowledgeOfServer returns the global delta cursor. Zero means none.
func (s *Store) LastKnowledgeOfServer() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastKnowledgeOfServer
}

// Accounts returns the cached accounts for a budget
func (s *Store) Accounts(budgetID string) ([]json.RawMessage, bool) {
	return s.records(budgetID, accountsCollection)
}

// Categories returns the cached categories for a budget
func (s *Store) Categories(budgetID string) ([]json.RawMessage, bool) {
	return s.records(budgetID, categoriesCollection)
}

// Transactions returns the cached transactions for a budget
func (s *Store) Transactions(budgetID string) ([]json.RawMessage, bool) {
	return s.records(budgetID, transactionsCollection)
}

// Budgets returns a copy of every cached budget snapshot
func (s *Store) Budgets() map[string]BudgetSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]BudgetSnapshot, len(s.state.Budgets))
	for id, snap := range s.state.Budgets {
		out[id] = BudgetSnapshot{
			Accounts:     cloneRecords(snap.Accounts),
			Categories:   cloneRecords(snap.Categories),
			Transactions: cloneRecords(snap.Transactions),
		}
	}
	return out
}

// SetDefaultBudgetID overwrites the default budget id and persists
func (s *Store) SetDefaultBudgetID(budgetID string) error {
	return s.mutate(func(st *state) {
		st.DefaultBudgetID = budgetID
	})
}

// UpdateLastKnowledgeOfServer overwrites the global cursor and persists. Last write wins.
func (s *Store) UpdateLastKnowledgeOfServer(serverKnowledge int64) error {
	return s.mutate(func(st *state) {
		st.LastKnowledgeOfServer = serverKnowledge
	})
}

// UpdateAccounts replaces a budget's accounts wholesale and persists
func (s *Store) UpdateAccounts(budgetID string, accounts []json.RawMessage) error {
	return s.replace(budgetID, accountsCollection, accounts)
}

// UpdateCategories replaces a budget's categories wholesale and persists
func (s *Store) UpdateCategories(budgetID string, categories []json.RawMessage) error {
	return s.replace(budgetID, categoriesCollection, categories)
}

// UpdateTransactions replaces a budget's transactions wholesale and persists
func (s *Store) UpdateTransactions(budgetID string, transactions []json.RawMessage) error {
	return s.replace(budgetID, transactionsCollection, transactions)
}

// Reset restores the default state (zero cursor, configured default budget, no budgets) and persists
func (s *Store) Reset() error {
	return s.mutate(func(st *state) {
		*st = *s.defaults()
	})
}

func (s *Store) defaults() *state {
	return &state{
		LastKnowledgeOfServer: 0,
		DefaultBudgetID:       s.defaultBudgetID,
		Budgets:               make(map[string]*BudgetSnapshot),
	}
}

func (s *Store) setPersist(enabled bool) {
	s.mu.Lock()
	s.persist = enabled
	s.mu.Unlock()
}

func (s *Store) records(budgetID string, c collection) ([]json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.state.Budgets[budgetID]
	if !ok {
		return nil, false
	}
	recs := *snap.field(c)
	if recs == nil {
		return nil, false
	}
	return cloneRecords(recs), true
}

func (s *Store) replace(budgetID string, c collection, recs []json.RawMessage) error {
	if err := validateRecords(recs); err != nil {
		return err
	}

	recs = cloneRecords(recs)
	if recs == nil {
		recs = []json.RawMessage{}
	}

	return s.mutate(func(st *state) {
		*st.budget(budgetID).field(c) = recs
	})
}

// mutate applies fn under the write lock, then persists the resulting state
func (s *Store) mutate(fn func(st *state)) error {
	s.mu.Lock()
	fn(s.state)

	if !s.persist {
		s.mu.Unlock()
		s.logger.Info("Filestore is disabled, skipping save")
		return nil
	}
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	s.seq++
	seq := s.seq
	data, err := json.Marshal(s.state)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Error encoding server knowledge", "error", err)
		return errors.Wrap(err, "failed to encode server knowledge")
	}

	return s.write(seq, data)
}

// save persists the current state outside of a mutation
func (s *Store) save() error {
	return s.mutate(func(*state) {})
}

// write stores data unless a newer sequence has already been written
func (s *Store) write(seq uint64, data []byte) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	// Close may have run while this save waited on saveMu
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	if seq <= s.written {
		s.logger.Debug("Skipping superseded server knowledge save", "seq", seq, "written", s.written)
		return nil
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("Error saving server knowledge", "path", s.path, "error", err)
		return err
	}

	s.written = seq
	s.logger.Debug("Saved server knowledge to storage", "path", s.path, "seq", seq, "bytes", len(data))
	return nil
}

func (st *state) budget(budgetID string) *BudgetSnapshot {
	if st.Budgets == nil {
		st.Budgets = make(map[string]*BudgetSnapshot)
	}
	snap, ok := st.Budgets[budgetID]
	if !ok {
		snap = &BudgetSnapshot{}
		st.Budgets[budgetID] = snap
	}
	return snap
}

type collection int

const (
	accountsCollection collection = iota
	categoriesCollection
	transactionsCollection
)

func (b *BudgetSnapshot) field(c collection) *[]json.RawMessage {
	switch c {
	case accountsCollection:
		return &b.Accounts
	case categoriesCollection:
		return &b.Categories
	default:
		return &b.Transactions
	}
}

func decodeState(data []byte) (*state, error) {
	var st *state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.New("server knowledge file holds null")
	}
	if st.Budgets == nil {
		st.Budgets = make(map[string]*BudgetSnapshot)
	}
	for id, snap := range st.Budgets {
		if snap == nil {
			st.Budgets[id] = &BudgetSnapshot{}
		}
	}
	return st, nil
}

func validateRecords(recs []json.RawMessage) error {
	for i, rec := range recs {
		if !json.Valid(rec) {
			return errors.Wrapf(ErrInvalidRecord, "record %d", i)
		}
	}
	return nil
}

func cloneRecords(recs []json.RawMessage) []json.RawMessage {
	if recs == nil {
		return nil
	}
	out := make([]json.RawMessage, len(recs))
	for i, rec := range recs {
		out[i] = append(json.RawMessage(nil), rec...)
	}
	return out
}
