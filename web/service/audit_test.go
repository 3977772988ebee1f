package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/web/entity"
)

func TestAuditLog(t *testing.T) {
	db := setupDB(t)
	svc := NewAuditLogService(db)
	ctx := t.Context()
	admin := &Identity{UserId: 1, Email: "admin@example.org", Role: model.RoleAdmin}

	require.NoError(t, svc.LogAction(ctx, AuditEntry{
		Identity: admin, Action: "DELETE", Resource: "event", ResourceId: 3,
		Details: map[string]any{"status": 200},
	}))
	require.NoError(t, svc.LogAction(ctx, AuditEntry{Identity: admin, Action: "UPDATE", Resource: "contact", ResourceId: 4}))

	logs, p, err := svc.GetAuditLogs(ctx, entity.PageRequest{}, "DELETE", "")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(1), p.Total)
	assert.Equal(t, "admin@example.org", logs[0].Email)
	assert.JSONEq(t, `{"status":200}`, logs[0].Details)

	logs, _, err = svc.GetAuditLogs(ctx, entity.PageRequest{}, "", "")
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	old := model.AuditLog{Action: "CREATE", Resource: "event", Timestamp: time.Now().AddDate(0, 0, -120)}
	require.NoError(t, db.Create(&old).Error)

	n, err := svc.CleanOldLogs(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEnsureAdmin(t *testing.T) {
	db := setupDB(t)
	svc := NewUserAdminService(db)
	ctx := t.Context()

	u, created, err := svc.EnsureAdmin(ctx, "", "Root@Example.org", "a long password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, "Administrator", u.Name)

	_, _, err = NewAuthService(db, testSecret, time.Hour).Register(ctx, "Bob", "bob@example.org", "bob password")
	require.NoError(t, err)
	u, created, err = svc.EnsureAdmin(ctx, "Bob", "bob@example.org", "new bob password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, _, err = NewAuthService(db, testSecret, time.Hour).Login(ctx, "bob@example.org", "new bob password")
	assert.NoError(t, err)

	n, err := svc.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	users, p, err := svc.ListUsers(ctx, entity.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, int64(2), p.Total)

	_, err = svc.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.EnsureAdmin(ctx, "", "root@example.org", "short")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
