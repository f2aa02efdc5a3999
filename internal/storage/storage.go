package storage

type Storage interface {
	// entries
	SaveEntry(entry *EntryRecord) error
	GetEntriesByAddress(address string) ([]*EntryRecord, error)

	// settled rounds
	SaveRound(round *RoundRecord) error
	GetRecentRounds(limit int) ([]*RoundRecord, error)
	GetTotalPaidOut() (uint64, error)
	GetWinCountByAddress(address string) (int64, error)
}
