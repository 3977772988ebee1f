// Package model holds the persisted entities of the portal.
package model

import "time"

type EventCategory string

const (
	CategoryWorkshop  EventCategory = "workshop"
	CategorySeminar   EventCategory = "seminar"
	CategoryMeetup    EventCategory = "meetup"
	CategoryTraining  EventCategory = "training"
	CategoryCommunity EventCategory = "community"
	CategoryOther     EventCategory = "other"
)

func (c EventCategory) Valid() bool {
	switch c {
	case CategoryWorkshop, CategorySeminar, CategoryMeetup, CategoryTraining, CategoryCommunity, CategoryOther:
		return true
	}
	return false
}

// Event is managed by admins only. RegisteredCount is advisory: the
// authoritative number is the count of registrations referencing the event.
type Event struct {
	Id              int           `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string        `json:"title" gorm:"not null"`
	Description     string        `json:"description" gorm:"type:text"`
	Date            time.Time     `json:"date" gorm:"index;not null"`
	Location        string        `json:"location"`
	Category        EventCategory `json:"category" gorm:"index;not null;default:workshop"`
	Image           string        `json:"image,omitempty"`
	IsActive        bool          `json:"isActive" gorm:"index;not null"`
	Capacity        *int          `json:"capacity,omitempty"`
	RegisteredCount int           `json:"registeredCount" gorm:"not null;default:0"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled:
		return true
	}
	return false
}

// Registration is a public sign-up for an event. At most one row may exist per
// (event_id, email); the unique index is the guard, not application code.
// EventId becomes NULL when the event is deleted.
type Registration struct {
	Id           int                `json:"id" gorm:"primaryKey;autoIncrement"`
	EventId      *int               `json:"eventId" gorm:"uniqueIndex:idx_registration_event_email,priority:1"`
	Event        *Event             `json:"event,omitempty" gorm:"foreignKey:EventId;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Name         string             `json:"name" gorm:"not null"`
	Email        string             `json:"email" gorm:"uniqueIndex:idx_registration_event_email,priority:2;not null"`
	Phone        string             `json:"phone"`
	Message      string             `json:"message,omitempty" gorm:"type:text"`
	Status       RegistrationStatus `json:"status" gorm:"not null;default:pending"`
	RegisteredAt time.Time          `json:"registeredAt" gorm:"index"`
}

type ContactStatus string

const (
	ContactPending  ContactStatus = "pending"
	ContactRead     ContactStatus = "read"
	ContactReplied  ContactStatus = "replied"
	ContactArchived ContactStatus = "archived"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactPending, ContactRead, ContactReplied, ContactArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether an admin may move a contact from s to next.
// pending -> read -> replied, and any non-archived state -> archived.
func (s ContactStatus) CanTransitionTo(next ContactStatus) bool {
	if s == ContactArchived {
		return false
	}
	switch next {
	case ContactArchived:
		return true
	case ContactRead:
		return s == ContactPending
	case ContactReplied:
		return s == ContactRead
	}
	return false
}

type Contact struct {
	Id          int           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string        `json:"name" gorm:"not null"`
	Email       string        `json:"email" gorm:"index;not null"`
	Phone       string        `json:"phone,omitempty"`
	Subject     string        `json:"subject" gorm:"not null"`
	Message     string        `json:"message" gorm:"type:text;not null"`
	InquiryType string        `json:"inquiryType,omitempty"`
	Status      ContactStatus `json:"status" gorm:"index;not null;default:pending"`
	IpAddress   string        `json:"ipAddress,omitempty"`
	UserAgent   string        `json:"userAgent,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
