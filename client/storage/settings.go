package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Setting is one name/value pair of persisted client state
type Setting struct {
	Name      string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

type Settings interface {
	FindSetting(name string) (*Setting, error)
	SaveSettings(settings ...Setting) error
	DeleteSettings(names ...string) error
}

func (s *sqliteDatabase) FindSetting(name string) (*Setting, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var setting Setting
	tx := s.db.First(&setting, "name = ?", name)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return &setting, nil
}

// SaveSettings writes all settings in one transaction, so a partial write never happens
func (s *sqliteDatabase) SaveSettings(settings ...Setting) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range settings {
			if err := tx.Save(&settings[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteDatabase) DeleteSettings(names ...string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	return s.db.Where("name IN ?", names).Delete(&Setting{}).Error
}
