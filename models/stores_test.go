package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Agent{}))
	return db
}

func TestGetSystemOwnerIDs(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	db := testDB(t)

	require.NoError(db.Create(&User{ID: 1, Handle: "alice", Email: "alice@example.com"}).Error)
	require.NoError(db.Create(&User{ID: 7, Handle: "ops", Email: "ops@parley.social", SystemOwner: true}).Error)

	users := NewUserStore(db)
	ids, err := users.GetSystemOwnerIDs(ctx)
	require.NoError(err)
	assert.Equal([]uint64{7}, ids)
}

func TestFindAgentByID(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	db := testDB(t)

	require.NoError(db.Create(&Agent{ID: 42, OwnerID: 7}).Error)

	agents := NewAgentStore(db)

	agent, err := agents.FindAgentByID(ctx, 42)
	require.NoError(err)
	require.NotNil(agent)
	assert.Equal(uint64(7), agent.OwnerID)

	// absent is not an error
	agent, err = agents.FindAgentByID(ctx, 99)
	require.NoError(err)
	assert.Nil(agent)
}
