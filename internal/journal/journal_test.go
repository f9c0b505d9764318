package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/engine"
)

func TestRecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordNet(engine.NetRecord{
		Net:      "VOUT",
		Marker:   '0',
		Segments: 12,
		Restarts: 1,
		Outcome:  "routed",
		Duration: 3200 * time.Millisecond,
	}))
	require.NoError(t, j.RecordNet(engine.NetRecord{
		Net:     "N$1",
		Marker:  '1',
		Outcome: "skipped",
	}))

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "VOUT", entries[0].Net)
	assert.Equal(t, "0", entries[0].Marker)
	assert.Equal(t, 12, entries[0].Segments)
	assert.Equal(t, 1, entries[0].Restarts)
	assert.Equal(t, "routed", entries[0].Outcome)
	assert.Equal(t, 3200*time.Millisecond, entries[0].Duration)

	assert.Equal(t, "skipped", entries[1].Outcome)
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordNet(engine.NetRecord{Net: "SIG", Marker: '0', Outcome: "routed"}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SIG", entries[0].Net)
}
