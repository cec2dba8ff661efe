package deltasync

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// encodeRecords marshals each item into its own record
func encodeRecords[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode record %d", i)
		}
		out = append(out, raw)
	}
	return out, nil
}

// decodeRecords unmarshals cached records into typed values
func decodeRecords[T any](recs []json.RawMessage) ([]*T, error) {
	out := make([]*T, 0, len(recs))
	for i, raw := range recs {
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, errors.Wrapf(err, "failed to decode record %d", i)
		}
		out = append(out, v)
	}
	return out, nil
}
