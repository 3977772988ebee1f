package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web/entity"
	"gorm.io/gorm"
)

type ContactInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Phone       string `json:"phone"`
	InquiryType string `json:"inquiryType"`
}

// RequestMeta is captured from the HTTP request, best effort.
type RequestMeta struct {
	IpAddress string
	UserAgent string
}

// SubmitResult reports whether the contact was stored. Persisted is false only
// in degraded mode, when the store failed and the submission was acknowledged anyway.
type SubmitResult struct {
	Contact   *model.Contact
	Persisted bool
}

type ContactService struct {
	db       *gorm.DB
	degraded bool
	notifier Notifier
}

// NewContactService creates the contact intake. With degraded set, a store
// failure on submit yields Persisted=false instead of an error.
func NewContactService(db *gorm.DB, degraded bool) *ContactService {
	return &ContactService{db: db, degraded: degraded}
}

// WithNotifier sets the notifier told about stored contacts.
func (s *ContactService) WithNotifier(n Notifier) *ContactService {
	s.notifier = n
	return s
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput, meta RequestMeta) (*SubmitResult, error) {
	c := &model.Contact{
		Name:        strings.TrimSpace(in.Name),
		Email:       NormalizeEmail(in.Email),
		Subject:     strings.TrimSpace(in.Subject),
		Message:     strings.TrimSpace(in.Message),
		Phone:       strings.TrimSpace(in.Phone),
		InquiryType: strings.TrimSpace(in.InquiryType),
		Status:      model.ContactPending,
		IpAddress:   strings.TrimSpace(meta.IpAddress),
		UserAgent:   meta.UserAgent,
	}
	if err := requireFields(
		field{"name", c.Name},
		field{"email", c.Email},
		field{"subject", c.Subject},
		field{"message", c.Message},
	); err != nil {
		return nil, err
	}
	if !validEmail(c.Email) {
		return nil, ErrInvalidEmail
	}
	if n := utf8.RuneCountInString(c.Name); n < 2 || n > 255 {
		return nil, invalid("name must be between 2 and 255 characters")
	}
	if n := utf8.RuneCountInString(c.Message); n < 2 || n > 5000 {
		return nil, invalid("message must be between 2 and 5000 characters")
	}

	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		if !s.degraded {
			return nil, storeErr("create contact", err)
		}
		logger.Errorf("contact from %s not persisted: %v", c.Email, err)
		c.Id = 0
		c.CreatedAt = time.Now()
		return &SubmitResult{Contact: c, Persisted: false}, nil
	}
	if s.notifier != nil {
		s.notifier.ContactReceived(*c)
	}
	return &SubmitResult{Contact: c, Persisted: true}, nil
}

// List returns one page of contacts, newest first, optionally filtered by status.
func (s *ContactService) List(ctx context.Context, page entity.PageRequest, status model.ContactStatus) ([]model.Contact, entity.Pagination, error) {
	page = page.Normalize()
	if status != "" && !status.Valid() {
		return nil, entity.Pagination{}, ErrInvalidStatus
	}
	scope := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.Contact{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, entity.Pagination{}, storeErr("count contacts", err)
	}
	contacts := make([]model.Contact, 0)
	err := scope().
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&contacts).Error
	if err != nil {
		return nil, entity.Pagination{}, storeErr("list contacts", err)
	}
	return contacts, entity.NewPagination(page, total), nil
}

func (s *ContactService) Get(ctx context.Context, id int) (*model.Contact, error) {
	var c model.Contact
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get contact", err)
	}
	return &c, nil
}

// SetStatus moves a contact one step through its workflow. Re-applying the
// current status is a no-op. The update is conditional on the status read, so
// a concurrent change makes this call fail instead of skipping a state.
func (s *ContactService) SetStatus(ctx context.Context, id int, status model.ContactStatus) (*model.Contact, error) {
	status = model.ContactStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == status {
		return c, nil
	}
	if !c.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: cannot move contact from %s to %s", ErrInvalidTransition, c.Status, status)
	}

	res := s.db.WithContext(ctx).
		Model(&model.Contact{}).
		Where("id = ? AND status = ?", id, c.Status).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, storeErr("update contact status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidTransition
	}
	return s.Get(ctx, id)
}

func (s *ContactService) Delete(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Delete(&model.Contact{}, id)
	if res.Error != nil {
		return storeErr("delete contact", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
