package storage

// RoundRecord is one settled round.
type RoundRecord struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Round           uint64 `gorm:"uniqueIndex"`
	RequestID       uint64 `gorm:"not null"`
	Winner          string `gorm:"not null"`
	Prize           uint64 `gorm:"not null"`
	NumParticipants int    `gorm:"not null"`
	SettledUnixTime int64  `gorm:"not null"`
}

// EntryRecord is one ticket purchase. The same address appears once per
// ticket.
type EntryRecord struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Address         string `gorm:"index"`
	Amount          uint64 `gorm:"not null"`
	EnteredUnixTime int64  `gorm:"not null"`
}
