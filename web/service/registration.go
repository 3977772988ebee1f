package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
	"gorm.io/gorm"
)

type RegistrationInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (in RegistrationInput) normalize() RegistrationInput {
	return RegistrationInput{
		Name:    strings.TrimSpace(in.Name),
		Email:   NormalizeEmail(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Message: strings.TrimSpace(in.Message),
	}
}

// RegistrationService accepts public event registrations and serves the
// admin views over them.
type RegistrationService struct {
	db       *gorm.DB
	events   *EventService
	notifier Notifier
}

func NewRegistrationService(db *gorm.DB, events *EventService) *RegistrationService {
	return &RegistrationService{db: db, events: events}
}

// WithNotifier sets the notifier told about new registrations.
func (s *RegistrationService) WithNotifier(n Notifier) *RegistrationService {
	s.notifier = n
	return s
}

// Register records a registration for an active event. A second registration
// with the same (event, email) fails with ErrDuplicateRegistration; the unique
// index decides when two requests race past the pre-check.
func (s *RegistrationService) Register(ctx context.Context, eventId int, in RegistrationInput) (*model.Registration, error) {
	in = in.normalize()
	if err := requireFields(field{"name", in.Name}, field{"email", in.Email}, field{"phone", in.Phone}); err != nil {
		return nil, err
	}
	if !validEmail(in.Email) {
		return nil, ErrInvalidEmail
	}

	event, err := s.events.GetActiveEvent(ctx, eventId)
	if err != nil {
		return nil, err
	}

	existing, err := s.Lookup(ctx, eventId, in.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRegistration
	}

	reg := &model.Registration{
		EventId:      &eventId,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Message:      in.Message,
		Status:       model.RegistrationPending,
		RegisteredAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(reg).Error; err != nil {
		switch {
		case database.IsDuplicate(err):
			return nil, ErrDuplicateRegistration
		case database.IsForeignKeyViolation(err):
			return nil, ErrEventNotFound
		}
		return nil, storeErr("create registration", err)
	}

	s.refreshCount(ctx, eventId)
	logger.Infof("registration %d for event %d: %s", reg.Id, eventId, reg.Email)
	if s.notifier != nil {
		s.notifier.RegistrationCreated(*event, *reg)
	}
	return reg, nil
}

// Lookup finds the registration for (eventId, email). The email is normalized first.
func (s *RegistrationService) Lookup(ctx context.Context, eventId int, email string) (*model.Registration, error) {
	var regs []model.Registration
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND email = ?", eventId, NormalizeEmail(email)).
		Limit(1).
		Find(&regs).Error
	if err != nil {
		return nil, storeErr("lookup registration", err)
	}
	if len(regs) == 0 {
		return nil, ErrNotFound
	}
	return &regs[0], nil
}

// ListByEvent returns every registration of one event, most recent first.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventId int) ([]model.Registration, error) {
	if _, err := s.events.GetEvent(ctx, eventId); err != nil {
		return nil, err
	}
	regs := make([]model.Registration, 0)
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventId).
		Order("registered_at DESC").
		Find(&regs).Error
	if err != nil {
		return nil, storeErr("list event registrations", err)
	}
	return regs, nil
}

// List returns one page of registrations across events, optionally filtered
// by event, with the event summary preloaded.
func (s *RegistrationService) List(ctx context.Context, page entity.PageRequest, eventId *int) ([]model.Registration, entity.Pagination, error) {
	page = page.Normalize()
	scope := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.Registration{})
		if eventId != nil {
			q = q.Where("event_id = ?", *eventId)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("count registrations", err)
	}
	regs := make([]model.Registration, 0)
	err := scope().Preload("Event").
		Order("registered_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&regs).Error
	if err != nil {
		return nil, entity.Pagination{}, storeErr("list registrations", err)
	}
	return regs, entity.NewPagination(page, total), nil
}

func (s *RegistrationService) Get(ctx context.Context, id int) (*model.Registration, error) {
	var reg model.Registration
	if err := s.db.WithContext(ctx).First(&reg, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get registration", err)
	}
	return &reg, nil
}

func (s *RegistrationService) SetStatus(ctx context.Context, id int, status model.RegistrationStatus) (*model.Registration, error) {
	status = model.RegistrationStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status == status {
		return reg, nil
	}
	if err := s.db.WithContext(ctx).Model(reg).Update("status", status).Error; err != nil {
		return nil, storeErr("update registration status", err)
	}
	reg.Status = status
	return reg, nil
}

// Delete hard-deletes a registration and refreshes its event's advisory count.
func (s *RegistrationService) Delete(ctx context.Context, id int) error {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&model.Registration{}, id)
	if res.Error != nil {
		return storeErr("delete registration", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if reg.EventId != nil {
		s.refreshCount(ctx, *reg.EventId)
	}
	return nil
}

func (s *RegistrationService) refreshCount(ctx context.Context, eventId int) {
	if err := s.events.RefreshRegisteredCount(ctx, eventId); err != nil {
		logger.Warningf("refresh registered count for event %d: %v", eventId, err)
	}
}
