package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// GetSystemOwnerIDs returns the IDs of all accounts flagged as system
// owners.
func (s *UserStore) GetSystemOwnerIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("system_owner = ?", true).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *UserStore) FindUserByID(ctx context.Context, id uint64) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type AgentStore struct {
	db *gorm.DB
}

func NewAgentStore(db *gorm.DB) *AgentStore {
	return &AgentStore{db: db}
}

// FindAgentByID returns nil when no agent record exists for id.
func (s *AgentStore) FindAgentByID(ctx context.Context, id uint64) (*Agent, error) {
	var agent Agent
	err := s.db.WithContext(ctx).First(&agent, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}
