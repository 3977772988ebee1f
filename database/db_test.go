package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database/model"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(&config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestRegistrationUniqueIndex(t *testing.T) {
	db := openTestDB(t)

	event := &model.Event{Title: "Workshop", Date: time.Now(), Category: model.CategoryWorkshop, IsActive: true}
	require.NoError(t, db.Create(event).Error)

	first := &model.Registration{EventId: &event.Id, Name: "A", Email: "a@b.com", Status: model.RegistrationPending, RegisteredAt: time.Now()}
	require.NoError(t, db.Create(first).Error)

	dup := &model.Registration{EventId: &event.Id, Name: "A again", Email: "a@b.com", Status: model.RegistrationPending, RegisteredAt: time.Now()}
	err := db.Create(dup).Error
	assert.True(t, IsDuplicate(err), "expected duplicate key error, got %v", err)

	var count int64
	require.NoError(t, db.Model(&model.Registration{}).Where("event_id = ?", event.Id).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegistrationRequiresExistingEvent(t *testing.T) {
	db := openTestDB(t)

	missing := 4242
	err := db.Create(&model.Registration{EventId: &missing, Name: "A", Email: "a@b.com", Status: model.RegistrationPending}).Error
	assert.True(t, IsForeignKeyViolation(err), "expected foreign key error, got %v", err)
}

func TestDeleteEventOrphansRegistrations(t *testing.T) {
	db := openTestDB(t)

	event := &model.Event{Title: "Meetup", Date: time.Now(), Category: model.CategoryMeetup, IsActive: true}
	require.NoError(t, db.Create(event).Error)
	reg := &model.Registration{EventId: &event.Id, Name: "A", Email: "a@b.com", Status: model.RegistrationPending}
	require.NoError(t, db.Create(reg).Error)

	require.NoError(t, db.Delete(&model.Event{}, event.Id).Error)

	var got model.Registration
	require.NoError(t, db.First(&got, reg.Id).Error)
	assert.Nil(t, got.EventId)
}

func TestUserEmailUnique(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&model.User{Name: "A", Email: "a@b.com", PasswordHash: "x", Role: model.RoleUser}).Error)
	err := db.Create(&model.User{Name: "B", Email: "a@b.com", PasswordHash: "y", Role: model.RoleUser}).Error
	assert.True(t, IsDuplicate(err))
}

func TestIsNotFound(t *testing.T) {
	db := openTestDB(t)

	var u model.User
	err := db.First(&u, 99).Error
	assert.True(t, IsNotFound(err))
	assert.NoError(t, Ping(t.Context(), db))
}
