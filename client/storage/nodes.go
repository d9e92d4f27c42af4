package storage

import (
	"errors"

	"gorm.io/gorm"
)

// RemoteNode holds the credentials this client uses to talk to another federated node.
// A node uses basic auth when Username is set, or signs requests when KeyID is set.
type RemoteNode struct {
	Host          string `gorm:"primaryKey"`
	Username      string
	Password      string
	KeyID         string
	PrivateKeyPEM string
	Active        bool
}

type Nodes interface {
	FindNode(host string) (*RemoteNode, error)
	GetNodes() ([]RemoteNode, error)
	SaveNode(n *RemoteNode) error
}

func (s *sqliteDatabase) FindNode(host string) (*RemoteNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var node RemoteNode
	tx := s.db.First(&node, "host = ?", host)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return &node, nil
}

func (s *sqliteDatabase) GetNodes() (nodes []RemoteNode, err error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tx := s.db.Order("host").Find(&nodes)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return nodes, nil
}

func (s *sqliteDatabase) SaveNode(n *RemoteNode) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.db.Save(n).Error
}
