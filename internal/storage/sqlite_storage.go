package storage

import (
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/justbytes/solidity-casino/internal/logger"
)

type SqliteStorage struct {
	db *gorm.DB
}

func NewSqliteStorage(path string) *SqliteStorage {

	logger.Debug("initializing database...", zap.String("path", path))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	err = db.AutoMigrate(
		&EntryRecord{},
		&RoundRecord{},
	)

	if err != nil {
		panic(err)
	}

	return &SqliteStorage{
		db: db,
	}
}

func (s *SqliteStorage) SaveEntry(entry *EntryRecord) error {
	return s.db.Create(entry).Error
}

func (s *SqliteStorage) GetEntriesByAddress(address string) ([]*EntryRecord, error) {

	var entries []*EntryRecord
	err := s.db.Where("address = ?", address).Order("id").Find(&entries).Error

	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *SqliteStorage) SaveRound(round *RoundRecord) error {
	logger.Debug("persisting settled round...", zap.Uint64("round", round.Round))

	err := s.db.Create(round).Error
	if err != nil {
		return err
	}

	logger.Debug("persisting settled round... done")
	return nil
}

func (s *SqliteStorage) GetRecentRounds(limit int) ([]*RoundRecord, error) {

	var rounds []*RoundRecord
	err := s.db.Order("round desc").Limit(limit).Find(&rounds).Error

	if err != nil {
		return nil, err
	}

	return rounds, nil
}

func (s *SqliteStorage) GetTotalPaidOut() (uint64, error) {
	logger.Debug("getting total paid out...")

	var total uint64
	err := s.db.Raw(`
		select coalesce(sum(prize), 0) as total
		from round_records
	`).Scan(&total).Error

	if err != nil {
		return 0, err
	}

	logger.Debug("getting total paid out... done", zap.Uint64("total", total))
	return total, nil
}

func (s *SqliteStorage) GetWinCountByAddress(address string) (int64, error) {

	var count int64
	err := s.db.Model(&RoundRecord{}).Where("winner = ?", address).Count(&count).Error

	if err != nil {
		return 0, err
	}

	return count, nil
}
