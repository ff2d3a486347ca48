package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessagesToleratesOddTimestamps(t *testing.T) {
	raw := json.RawMessage(`[
		{"from":"user","text":"a","timestamp":"2024-01-01T10:00:00Z"},
		{"from":"bot","text":"b","timestamp":"2024-01-01T10:00:05.123456"},
		{"from":"user","text":"c","timestamp":"yesterday at noon"},
		{"from":"bot","text":"d","timestamp":1704103200000},
		{"from":"user","text":"e","timestamp":{"$date":"x"}},
		{"from":"bot","text":"f"}
	]`)

	rows, err := ParseMessages(raw)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.True(t, rows[0].Timestamp.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2024, rows[1].Timestamp.Year())
	assert.True(t, rows[2].Timestamp.IsZero())
	assert.True(t, rows[3].Timestamp.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, rows[4].Timestamp.IsZero())
	assert.True(t, rows[5].Timestamp.IsZero())
	assert.Equal(t, "c", rows[2].Text)
}

func TestParseMessagesStillRejectsUnknownOrigin(t *testing.T) {
	_, err := ParseMessages(json.RawMessage(`[{"from":"system","text":"x","timestamp":"not a time"}]`))
	assert.ErrorIs(t, err, ErrMalformedMessages)
}
