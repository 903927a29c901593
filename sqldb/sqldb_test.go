package sqldb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	katmannames "github.com/katmannames/katmannames"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := testDB(t)

	base := time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)
	for i, res := range []*katmannames.GameResult{
		{RoomCode: "AAAAAA", Winner: katmannames.DarkTeam, Reason: katmannames.ReasonAllCardsFound, Reveals: 20},
		{RoomCode: "BBBBBB", Winner: katmannames.LightTeam, Reason: katmannames.ReasonAssassin, Reveals: 7, ChaosMode: true},
		{RoomCode: "CCCCCC", Winner: katmannames.DarkTeam, Reason: katmannames.ReasonAssassin, Reveals: 12},
	} {
		res.StartedAt = base.Add(time.Duration(i) * time.Hour)
		res.EndedAt = res.StartedAt.Add(30 * time.Minute)
		require.NoError(t, db.RecordResult(res))
	}

	recent, err := db.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, katmannames.RoomCode("CCCCCC"), recent[0].RoomCode)
	require.Equal(t, katmannames.RoomCode("BBBBBB"), recent[1].RoomCode)

	require.Equal(t, katmannames.LightTeam, recent[1].Winner)
	require.Equal(t, katmannames.ReasonAssassin, recent[1].Reason)
	require.Equal(t, 7, recent[1].Reveals)
	require.True(t, recent[1].ChaosMode)
	require.True(t, recent[1].EndedAt.Equal(base.Add(time.Hour+30*time.Minute)))
}

func TestRecentEmpty(t *testing.T) {
	db := testDB(t)

	recent, err := db.Recent(10)
	require.NoError(t, err)
	require.Empty(t, recent)
}
