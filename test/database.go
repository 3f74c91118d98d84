package test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TmpFile returns the path to a unique SQLite database file in a directory
// that is removed after the test.
func TmpFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), uuid.NewString()+".db")
}

// DB connects to a fresh, migrated SQLite database that is closed when the
// test finishes.
func DB(t *testing.T) *gorm.DB {
	db, err := models.Connect(models.DriverSQLite, TmpFile(t))
	require.Nil(t, err, "Error on database connection")

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
