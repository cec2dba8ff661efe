package ynab

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "date only", input: `"2024-03-15"`, want: "2024-03-15"},
		{name: "RFC3339", input: `"2024-03-15T08:30:00Z"`, want: "2024-03-15"},
		{name: "datetime without zone", input: `"2024-03-15T08:30:00"`, want: "2024-03-15"},
		{name: "null", input: `null`, want: ""},
		{name: "empty string", input: `""`, want: ""},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	got, err := json.Marshal(Date{Time: time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-15"`, string(got))

	got, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(got))
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2024, 3, 2, 17, 45, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-28", DaysAgo(now, 3).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.January, d.Month())

	_, err = ParseDate("01/31/2024")
	assert.Error(t, err)
}

func TestTransactionDetail_DateParsing(t *testing.T) {
	var txn TransactionDetail
	err := json.Unmarshal([]byte(`{
		"id": "t-1",
		"date": "2024-03-15",
		"amount": -12340,
		"memo": null,
		"cleared": "cleared",
		"approved": true,
		"account_id": "a-1",
		"account_name": "Checking",
		"deleted": false
	}`), &txn)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-15", txn.Date.String())
	assert.Equal(t, int64(-12340), txn.Amount)
	assert.Nil(t, txn.Memo)
}

func TestFormatMilliunits(t *testing.T) {
	assert.Equal(t, "-12.34", FormatMilliunits(-12340))
	assert.Equal(t, "0.00", FormatMilliunits(0))
	assert.Equal(t, "1500.50", FormatMilliunits(1500500))
	assert.InDelta(t, 1.5, MilliunitsToAmount(1500), 1e-9)
}
