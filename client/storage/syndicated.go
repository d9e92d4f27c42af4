package storage

import (
	"time"
)

// SyndicatedItem records a feed item that was already crossposted
type SyndicatedItem struct {
	ItemID    string `gorm:"primaryKey"`
	PostID    string
	Published time.Time
	Updated   time.Time
}

type Syndicated interface {
	GetSyndicated() ([]SyndicatedItem, error)
	SaveSyndicated(item *SyndicatedItem) error
}

func (s *sqliteDatabase) GetSyndicated() (items []SyndicatedItem, err error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tx := s.db.Order("published desc").Find(&items)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return items, nil
}

func (s *sqliteDatabase) SaveSyndicated(item *SyndicatedItem) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.db.Save(item).Error
}
