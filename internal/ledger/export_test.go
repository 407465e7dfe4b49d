package ledger

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceRows replays fixed records; nil cells scan as NULL.
type sliceRows struct {
	data [][]*string
	i    int
	err  error
}

func (s *sliceRows) Next() bool {
	s.i++
	return s.i <= len(s.data)
}

func (s *sliceRows) Scan(dest ...any) error {
	row := s.data[s.i-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, v := range row {
		ns := dest[i].(*sql.NullString)
		if v == nil {
			*ns = sql.NullString{}
		} else {
			*ns = sql.NullString{String: *v, Valid: true}
		}
	}
	return nil
}

func (s *sliceRows) Err() error { return s.err }

func str(s string) *string { return &s }

func TestWriteCSV(t *testing.T) {
	rows := &sliceRows{data: [][]*string{
		{str("b1"), str("100.00"), nil},
		{str("b2"), str("12.50"), str(`direct, "level 1"`)},
	}}
	var buf bytes.Buffer

	n, err := WriteCSV(&buf, []string{"id", "amount", "description"}, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "id,amount,description\nb1,100.00,\nb2,12.50,\"direct, \"\"level 1\"\"\"\n", buf.String())
}

func TestWriteCSVReportsIterationError(t *testing.T) {
	rows := &sliceRows{err: errors.New("connection reset")}
	var buf bytes.Buffer

	n, err := WriteCSV(&buf, []string{"id"}, rows)
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "connection reset")
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"sales", "bonuses", "transactions"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.NotEmpty(t, k.Header())
	}
	_, err := ParseKind("payroll")
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	now := time.Date(2026, 5, 20, 15, 4, 0, 0, time.UTC)

	r, err := ParseRange("2026-05-01", "2026-05-31", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), r.To)

	r, err = ParseRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), r.From)
	assert.Equal(t, time.Date(2026, 5, 21, 0, 0, 0, 0, time.UTC), r.To)

	_, err = ParseRange("2026-05-10", "2026-05-01", now)
	assert.Error(t, err)

	_, err = ParseRange("01/05/2026", "", now)
	assert.Error(t, err)
}
