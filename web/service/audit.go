package service

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
	"gorm.io/gorm"
)

// AuditEntry describes one admin mutation to be recorded.
type AuditEntry struct {
	Identity   *Identity
	Action     string // CREATE, UPDATE, DELETE
	Resource   string // event, registration, contact
	ResourceId int
	RequestId  string
	Ip         string
	UserAgent  string
	Details    map[string]any
}

// AuditLogService records admin mutations.
type AuditLogService struct {
	db *gorm.DB
}

func NewAuditLogService(db *gorm.DB) *AuditLogService {
	return &AuditLogService{db: db}
}

func (s *AuditLogService) LogAction(ctx context.Context, e AuditEntry) error {
	detailsJSON := ""
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			logger.Warning("Failed to marshal audit log details:", err)
		} else {
			detailsJSON = string(data)
		}
	}

	row := model.AuditLog{
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceId: e.ResourceId,
		RequestId:  e.RequestId,
		Ip:         e.Ip,
		UserAgent:  e.UserAgent,
		Details:    detailsJSON,
		Timestamp:  time.Now(),
	}
	if e.Identity != nil {
		row.UserId = e.Identity.UserId
		row.Email = e.Identity.Email
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Warningf("Failed to create audit log: user=%d, action=%s, resource=%s, error=%v", row.UserId, e.Action, e.Resource, err)
		return err
	}
	return nil
}

// GetAuditLogs returns one page of audit rows, newest first, filtered by the
// non-empty action and resource.
func (s *AuditLogService) GetAuditLogs(ctx context.Context, page entity.PageRequest, action, resource string) ([]model.AuditLog, entity.Pagination, error) {
	page = page.Normalize()
	scope := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.AuditLog{})
		if action != "" {
			q = q.Where("action = ?", action)
		}
		if resource != "" {
			q = q.Where("resource = ?", resource)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("count audit logs", err)
	}
	logs := make([]model.AuditLog, 0)
	err := scope().Order("timestamp DESC").Offset(page.Offset()).Limit(page.Limit).Find(&logs).Error
	if err != nil {
		return nil, entity.Pagination{}, storeErr("list audit logs", err)
	}
	return logs, entity.NewPagination(page, total), nil
}

// CleanOldLogs deletes audit rows older than days and returns how many were removed.
func (s *AuditLogService) CleanOldLogs(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&model.AuditLog{})
	if res.Error != nil {
		return 0, storeErr("clean audit logs", res.Error)
	}
	return res.RowsAffected, nil
}
