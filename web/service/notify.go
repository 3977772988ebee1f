package service

import "github.com/ytschitwan/portal/database/model"

// Notifier is told about new public submissions after they are stored.
// Implementations must not block the caller.
type Notifier interface {
	ContactReceived(c model.Contact)
	RegistrationCreated(e model.Event, r model.Registration)
}
