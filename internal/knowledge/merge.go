package knowledge

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// recordKey is the part of a record the merge understands
type recordKey struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// MergeAccounts applies an accounts delta to the cached set and persists
func (s *Store) MergeAccounts(budgetID string, delta []json.RawMessage) error {
	return s.merge(budgetID, accountsCollection, delta)
}

// MergeCategories applies a categories delta to the cached set and persists
func (s *Store) MergeCategories(budgetID string, delta []json.RawMessage) error {
	return s.merge(budgetID, categoriesCollection, delta)
}

// MergeTransactions applies a transactions delta to the cached set and persists.
//
// Records are matched by "id": a changed record replaces the cached one in
// place, a new record is appended, and a record marked "deleted": true is
// dropped from the cache.
func (s *Store) MergeTransactions(budgetID string, delta []json.RawMessage) error {
	return s.merge(budgetID, transactionsCollection, delta)
}

func (s *Store) merge(budgetID string, c collection, delta []json.RawMessage) error {
	keys, err := deltaKeys(delta)
	if err != nil {
		return err
	}
	delta = cloneRecords(delta)

	return s.mutate(func(st *state) {
		field := st.budget(budgetID).field(c)
		*field = mergeRecords(*field, delta, keys)
	})
}

func deltaKeys(delta []json.RawMessage) ([]recordKey, error) {
	keys := make([]recordKey, len(delta))
	for i, rec := range delta {
		if err := json.Unmarshal(rec, &keys[i]); err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "record %d: %v", i, err)
		}
		if keys[i].ID == "" {
			return nil, errors.Wrapf(ErrMissingID, "record %d", i)
		}
	}
	return keys, nil
}

// mergeRecords folds delta into existing. Existing records whose id cannot be
// read are kept untouched.
func mergeRecords(existing, delta []json.RawMessage, keys []recordKey) []json.RawMessage {
	index := make(map[string]int, len(existing))
	merged := make([]json.RawMessage, 0, len(existing)+len(delta))
	removed := make(map[int]bool)

	for _, rec := range existing {
		var key recordKey
		if err := json.Unmarshal(rec, &key); err == nil && key.ID != "" {
			index[key.ID] = len(merged)
		}
		merged = append(merged, rec)
	}

	for i, rec := range delta {
		key := keys[i]
		pos, known := index[key.ID]
		switch {
		case key.Deleted && known:
			removed[pos] = true
		case key.Deleted:
			// deleted before we ever saw it
		case known:
			merged[pos] = rec
			delete(removed, pos)
		default:
			index[key.ID] = len(merged)
			merged = append(merged, rec)
		}
	}

	out := make([]json.RawMessage, 0, len(merged)-len(removed))
	for i, rec := range merged {
		if !removed[i] {
			out = append(out, rec)
		}
	}
	return out
}
