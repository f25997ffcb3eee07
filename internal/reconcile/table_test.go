package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "\ufefffill_execution_id,account,fill_shares\nE1,U1,100\nE2,U1,\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"fill_execution_id", "account", "fill_shares"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "E2", tbl.Rows[1]["fill_execution_id"])
	assert.True(t, isNull(tbl.Rows[1]["fill_shares"]))
}

func TestReadCSV_EmptyAndRagged(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestTableFromRecords(t *testing.T) {
	tbl := TableFromRecords([]map[string]string{
		{"symbol": "AAPL", "conid": "265598"},
		{"symbol": "MSFT", "isin": "US5949181045"},
	})
	assert.Equal(t, []string{"conid", "isin", "symbol"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"cusip"}, tbl.Missing([]string{"symbol", "cusip"}))

	var nilTable *Table
	assert.Zero(t, nilTable.Len())
}

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-15;10:30:00 EST", time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)},
		{"2026-07-15;10:30:00 EDT", time.Date(2026, 7, 15, 14, 30, 0, 0, time.UTC)},
		{"2026-01-15;10:30:00 CST", time.Date(2026, 1, 15, 16, 30, 0, 0, time.UTC)},
		{"2026-01-15;10:30:00 PST", time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC)},
		{"2026-01-15;10:30:00 GMT", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-01-15;10:30:00 XYZ", time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)},
		{"20260115;103000", time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)},
		{"20260715;103000", time.Date(2026, 7, 15, 14, 30, 0, 0, time.UTC)},
		{"2026-01-15 10:30:00", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-01-15T10:30:00-05:00", time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC)},
		{"20260115", time.Date(2026, 1, 15, 5, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDateTime(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"", "yesterday", "2026/01/15 10:30"} {
		_, err := ParseDateTime(bad)
		assert.Error(t, err, bad)
	}
}
