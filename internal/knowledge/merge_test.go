package knowledge

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordsOf(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}

func asStrings(recs []json.RawMessage) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = string(r)
	}
	return out
}

func TestMergeRecords(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		delta    []string
		want     []string
	}{
		{
			name:  "into empty cache",
			delta: []string{`{"id":"t1"}`, `{"id":"t2"}`},
			want:  []string{`{"id":"t1"}`, `{"id":"t2"}`},
		},
		{
			name:     "changed record replaced in place",
			existing: []string{`{"id":"t1","amount":1}`, `{"id":"t2","amount":2}`},
			delta:    []string{`{"id":"t1","amount":10}`},
			want:     []string{`{"id":"t1","amount":10}`, `{"id":"t2","amount":2}`},
		},
		{
			name:     "new record appended",
			existing: []string{`{"id":"t1"}`},
			delta:    []string{`{"id":"t3"}`},
			want:     []string{`{"id":"t1"}`, `{"id":"t3"}`},
		},
		{
			name:     "deleted record removed",
			existing: []string{`{"id":"t1"}`, `{"id":"t2"}`},
			delta:    []string{`{"id":"t1","deleted":true}`},
			want:     []string{`{"id":"t2"}`},
		},
		{
			name:     "unknown deleted record ignored",
			existing: []string{`{"id":"t1"}`},
			delta:    []string{`{"id":"t9","deleted":true}`},
			want:     []string{`{"id":"t1"}`},
		},
		{
			name:     "existing record without id kept",
			existing: []string{`{"name":"legacy"}`},
			delta:    []string{`{"id":"t1"}`},
			want:     []string{`{"name":"legacy"}`, `{"id":"t1"}`},
		},
		{
			name:  "empty delta on empty cache",
			delta: []string{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := recordsOf(tt.delta...)
			keys, err := deltaKeys(delta)
			require.NoError(t, err)

			got := mergeRecords(recordsOf(tt.existing...), delta, keys)
			if diff := cmp.Diff(tt.want, asStrings(got)); diff != "" {
				t.Errorf("mergeRecords() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeltaKeys_RejectsBadRecords(t *testing.T) {
	_, err := deltaKeys(recordsOf(`{"amount":1}`))
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = deltaKeys(recordsOf(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = deltaKeys(recordsOf(`null`))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestMergeTransactions_PersistsMergedSet(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, "")

	require.NoError(t, s.UpdateTransactions("b", recordsOf(`{"id":"t1","memo":"a"}`, `{"id":"t2","memo":"b"}`)))
	require.NoError(t, s.MergeTransactions("b", recordsOf(`{"id":"t2","memo":"changed"}`, `{"id":"t1","deleted":true}`, `{"id":"t3"}`)))

	txns, ok := s.Transactions("b")
	require.True(t, ok)
	assert.Equal(t, []string{`{"id":"t2","memo":"changed"}`, `{"id":"t3"}`}, asStrings(txns))

	reopened := openStore(t, dir, "")
	txns, _ = reopened.Transactions("b")
	assert.Equal(t, []string{`{"id":"t2","memo":"changed"}`, `{"id":"t3"}`}, asStrings(txns))
}

func TestMerge_InvalidDeltaLeavesCacheUntouched(t *testing.T) {
	s := openStore(t, t.TempDir(), "")

	require.NoError(t, s.UpdateAccounts("b", recordsOf(`{"id":"a1"}`)))
	err := s.MergeAccounts("b", recordsOf(`{"id":"a2"}`, `{"name":"no id"}`))
	assert.ErrorIs(t, err, ErrMissingID)

	accounts, _ := s.Accounts("b")
	assert.Equal(t, []string{`{"id":"a1"}`}, asStrings(accounts))
}

func TestMergeCategories_CreatesBudget(t *testing.T) {
	s := openStore(t, t.TempDir(), "")

	require.NoError(t, s.MergeCategories("new", recordsOf(`{"id":"c1"}`)))

	categories, ok := s.Categories("new")
	require.True(t, ok)
	assert.Len(t, categories, 1)
}
