package service

import (
	"context"

	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/util/common"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Stats are the back-office summary counts. Degraded names the counts that
// could not be computed and are reported as 0.
type Stats struct {
	UsersCount           int64    `json:"usersCount"`
	EventsCount          int64    `json:"eventsCount"`
	ContactsCount        int64    `json:"contactsCount"`
	RegistrationsCount   int64    `json:"registrationsCount"`
	PendingContactsCount int64    `json:"pendingContactsCount"`
	Degraded             []string `json:"degraded,omitempty"`
}

type countQuery struct {
	name  string
	query func(db *gorm.DB) *gorm.DB
	dst   *int64
}

type countResult struct {
	n  atomic.Int64
	ok atomic.Bool
}

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// GetStats runs every count concurrently as an independent query. A failing
// count is logged and reported as 0; GetStats itself never fails.
func (s *DashboardService) GetStats(ctx context.Context) Stats {
	var stats Stats
	queries := []countQuery{
		{"usersCount", func(db *gorm.DB) *gorm.DB { return db.Model(&model.User{}) }, &stats.UsersCount},
		{"eventsCount", func(db *gorm.DB) *gorm.DB { return db.Model(&model.Event{}) }, &stats.EventsCount},
		{"contactsCount", func(db *gorm.DB) *gorm.DB { return db.Model(&model.Contact{}) }, &stats.ContactsCount},
		{"registrationsCount", func(db *gorm.DB) *gorm.DB { return db.Model(&model.Registration{}) }, &stats.RegistrationsCount},
		{"pendingContactsCount", func(db *gorm.DB) *gorm.DB {
			return db.Model(&model.Contact{}).Where("status = ?", model.ContactPending)
		}, &stats.PendingContactsCount},
	}

	results := make([]countResult, len(queries))
	// A plain Group: one failing count must not cancel the others.
	var g errgroup.Group
	for i, q := range queries {
		r := &results[i]
		g.Go(func() error {
			defer common.Recover("dashboard " + q.name)

			var n int64
			if err := q.query(s.db.WithContext(ctx)).Count(&n).Error; err != nil {
				logger.Warningf("dashboard %s failed: %v", q.name, err)
				return nil
			}
			r.n.Store(n)
			r.ok.Store(true)
			return nil
		})
	}
	_ = g.Wait()

	for i, q := range queries {
		if results[i].ok.Load() {
			*q.dst = results[i].n.Load()
		} else {
			stats.Degraded = append(stats.Degraded, q.name)
		}
	}
	return stats
}
