package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
	"gorm.io/gorm"
)

// EventInput is used both to create an event and to patch one. On update only
// the non-nil fields are written. A capacity <= 0 clears the capacity.
type EventInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Date        *time.Time           `json:"date"`
	Location    *string              `json:"location"`
	Category    *model.EventCategory `json:"category"`
	Image       *string              `json:"image"`
	IsActive    *bool                `json:"isActive"`
	Capacity    *int                 `json:"capacity"`
}

type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// ListActiveEvents returns the events shown on the public site, soonest first.
// It always reads the store.
func (s *EventService) ListActiveEvents(ctx context.Context) ([]model.Event, error) {
	events := make([]model.Event, 0)
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("date ASC").
		Find(&events).Error
	if err != nil {
		return nil, storeErr("list active events", err)
	}
	return events, nil
}

// ListEvents returns one page of all events, newest date first.
func (s *EventService) ListEvents(ctx context.Context, page entity.PageRequest) ([]model.Event, entity.Pagination, error) {
	page = page.Normalize()
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Event{}).Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("count events", err)
	}
	events := make([]model.Event, 0)
	if err := db.Order("date DESC").Offset(page.Offset()).Limit(page.Limit).Find(&events).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("list events", err)
	}
	return events, entity.NewPagination(page, total), nil
}

func (s *EventService) GetEvent(ctx context.Context, id int) (*model.Event, error) {
	var e model.Event
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get event", err)
	}
	return &e, nil
}

// GetActiveEvent hides inactive events the same way as missing ones.
func (s *EventService) GetActiveEvent(ctx context.Context, id int) (*model.Event, error) {
	e, err := s.GetEvent(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && !e.IsActive) {
		return nil, ErrEventNotFound
	}
	return e, err
}

func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (*model.Event, error) {
	e := &model.Event{
		Category: model.CategoryWorkshop,
		IsActive: true,
	}
	if in.Title == nil || in.Description == nil || in.Date == nil || in.Location == nil {
		var missing []string
		if in.Title == nil {
			missing = append(missing, "title")
		}
		if in.Description == nil {
			missing = append(missing, "description")
		}
		if in.Date == nil {
			missing = append(missing, "date")
		}
		if in.Location == nil {
			missing = append(missing, "location")
		}
		return nil, &ValidationError{Missing: missing}
	}
	if _, err := applyEventInput(e, in); err != nil {
		return nil, err
	}
	if err := requireFields(field{"title", e.Title}, field{"description", e.Description}, field{"location", e.Location}); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, storeErr("create event", err)
	}
	logger.Infof("event %d created: %s", e.Id, e.Title)
	return e, nil
}

// UpdateEvent applies the provided fields and leaves the others unchanged.
func (s *EventService) UpdateEvent(ctx context.Context, id int, patch EventInput) (*model.Event, error) {
	e, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	changes, err := applyEventInput(e, patch)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return e, nil
	}
	if err := s.db.WithContext(ctx).Model(&model.Event{Id: id}).Updates(changes).Error; err != nil {
		return nil, storeErr("update event", err)
	}
	return s.GetEvent(ctx, id)
}

// DeleteEvent hard-deletes the event. Its registrations stay, with a NULL event id.
func (s *EventService) DeleteEvent(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Delete(&model.Event{}, id)
	if res.Error != nil {
		return storeErr("delete event", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	logger.Infof("event %d deleted", id)
	return nil
}

// RefreshRegisteredCount recomputes the advisory counter from the registrations table.
func (s *EventService) RefreshRegisteredCount(ctx context.Context, id int) error {
	return s.db.WithContext(ctx).Exec(refreshCountSQL+" WHERE id = ?", id).Error
}

// ReconcileRegisteredCounts recomputes the advisory counter of every event and
// returns how many rows were out of date.
func (s *EventService) ReconcileRegisteredCounts(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Exec(refreshCountSQL + " WHERE registered_count <> (" + countSubquery + ")")
	if res.Error != nil {
		return 0, storeErr("reconcile registered counts", res.Error)
	}
	return res.RowsAffected, nil
}

const (
	countSubquery   = "SELECT COUNT(*) FROM registrations WHERE registrations.event_id = events.id"
	refreshCountSQL = "UPDATE events SET registered_count = (" + countSubquery + ")"
)

// applyEventInput copies the non-nil fields onto e after trimming and
// validation, and returns the column changes for a partial update.
func applyEventInput(e *model.Event, in EventInput) (map[string]any, error) {
	changes := make(map[string]any)

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if n := utf8.RuneCountInString(title); n < 3 || n > 255 {
			return nil, invalid("title must be between 3 and 255 characters")
		}
		e.Title = title
		changes["title"] = title
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
		changes["description"] = e.Description
	}
	if in.Date != nil {
		if in.Date.IsZero() {
			return nil, invalid("date is required")
		}
		e.Date = *in.Date
		changes["date"] = e.Date
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
		changes["location"] = e.Location
	}
	if in.Category != nil {
		c := model.EventCategory(strings.ToLower(strings.TrimSpace(string(*in.Category))))
		if c == "" {
			c = model.CategoryWorkshop
		}
		if !c.Valid() {
			return nil, invalid("invalid category: %s", c)
		}
		e.Category = c
		changes["category"] = c
	}
	if in.Image != nil {
		e.Image = strings.TrimSpace(*in.Image)
		changes["image"] = e.Image
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
		changes["is_active"] = e.IsActive
	}
	if in.Capacity != nil {
		if *in.Capacity <= 0 {
			e.Capacity = nil
			changes["capacity"] = nil
		} else {
			c := *in.Capacity
			e.Capacity = &c
			changes["capacity"] = c
		}
	}
	return changes, nil
}
