package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-admin-backend/config"
	"restaurant-admin-backend/internal/model"
)

func TestInit_SQLiteMigratesAllModels(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file:dbinit?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	for _, m := range model.All() {
		assert.True(t, gormDB.Migrator().HasTable(m), "expected table for %T", m)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}
