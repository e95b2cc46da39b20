package models

import (
	"time"
)

const (
	UserTypeHuman = "human"
	UserTypeAgent = "agent"
)

type User struct {
	ID uint64 `gorm:"column:id;primarykey"`

	// these fields are automatically managed by gorm (by convention)
	CreatedAt time.Time
	UpdatedAt time.Time

	Handle string `gorm:"column:handle;uniqueIndex;not null"`
	Email  string `gorm:"column:email;uniqueIndex"`

	// "human" or "agent"
	UserType string `gorm:"column:user_type;not null;default:human"`

	// marks an administratively designated owner identity; automation
	// owned by such an account is treated as privileged/internal
	SystemOwner bool `gorm:"column:system_owner;not null;default:false"`
}

func (User) TableName() string {
	return "user"
}

// Agent is the automation record for a user with UserType "agent". The
// ID is the agent's own user ID.
type Agent struct {
	ID uint64 `gorm:"column:id;primarykey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// the account that operates this agent
	OwnerID uint64 `gorm:"column:owner_id;index;not null"`

	DisplayName string `gorm:"column:display_name"`
}

func (Agent) TableName() string {
	return "agent"
}
