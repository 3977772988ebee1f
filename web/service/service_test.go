package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/util/crypto"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	crypto.Cost = bcrypt.MinCost
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func ptr[T any](v T) *T { return &v }

func createEvent(t *testing.T, svc *EventService, title string, active bool) *model.Event {
	t.Helper()
	e, err := svc.CreateEvent(t.Context(), EventInput{
		Title:       ptr(title),
		Description: ptr("A description"),
		Date:        ptr(time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)),
		Location:    ptr("Community hall"),
		IsActive:    ptr(active),
	})
	require.NoError(t, err)
	return e
}
