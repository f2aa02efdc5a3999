package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justbytes/solidity-casino/internal/raffle"
)

func newTestStorage(t *testing.T) *SqliteStorage {
	t.Helper()
	return NewSqliteStorage(filepath.Join(t.TempDir(), "test.db"))
}

func TestSaveAndLoadRounds(t *testing.T) {
	st := newTestStorage(t)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, st.SaveRound(&RoundRecord{
			Round:           i,
			RequestID:       i * 10,
			Winner:          "0:aa",
			Prize:           4_000_000,
			NumParticipants: 4,
			SettledUnixTime: time.Now().Unix(),
		}))
	}

	rounds, err := st.GetRecentRounds(2)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	// newest first
	require.Equal(t, uint64(3), rounds[0].Round)
	require.Equal(t, uint64(2), rounds[1].Round)

	total, err := st.GetTotalPaidOut()
	require.NoError(t, err)
	require.Equal(t, uint64(12_000_000), total)

	wins, err := st.GetWinCountByAddress("0:aa")
	require.NoError(t, err)
	require.Equal(t, int64(3), wins)

	wins, err = st.GetWinCountByAddress("0:bb")
	require.NoError(t, err)
	require.Equal(t, int64(0), wins)
}

func TestSaveAndLoadEntries(t *testing.T) {
	st := newTestStorage(t)

	require.NoError(t, st.SaveEntry(&EntryRecord{Address: "0:aa", Amount: 1_000_000, EnteredUnixTime: 100}))
	require.NoError(t, st.SaveEntry(&EntryRecord{Address: "0:aa", Amount: 1_000_000, EnteredUnixTime: 110}))
	require.NoError(t, st.SaveEntry(&EntryRecord{Address: "0:bb", Amount: 2_000_000, EnteredUnixTime: 120}))

	entries, err := st.GetEntriesByAddress("0:aa")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = st.GetEntriesByAddress("0:bb")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint64(2_000_000), entries[0].Amount)
}

func TestRecorderPersistsEvents(t *testing.T) {
	st := newTestStorage(t)
	recorder := NewRecorder(st)

	now := time.Unix(1_700_000_000, 0)
	recorder.Publish(raffle.Event{
		Type:        raffle.EventEntered,
		Participant: "0:cc",
		Amount:      1_000_000,
		At:          now,
	})
	// request submissions are not persisted
	recorder.Publish(raffle.Event{
		Type:      raffle.EventRequestSubmitted,
		RequestID: 7,
		At:        now,
	})
	recorder.Publish(raffle.Event{
		Type:            raffle.EventWinnerSelected,
		Round:           1,
		RequestID:       7,
		Winner:          "0:cc",
		Prize:           1_000_000,
		NumParticipants: 1,
		At:              now.Add(time.Minute),
	})

	entries, err := st.GetEntriesByAddress("0:cc")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rounds, err := st.GetRecentRounds(10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Equal(t, "0:cc", rounds[0].Winner)
	require.Equal(t, uint64(7), rounds[0].RequestID)
}
