package types

import (
	"strings"

	"github.com/google/uuid"
)

// Owner identifies who a cart, address or order belongs to: an authenticated
// user id or an anonymous session id, never both.
type Owner struct {
	UserID    *uuid.UUID
	SessionID *string
}

// UserOwner builds an owner for an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner builds an owner for an anonymous session.
func GuestOwner(sessionID string) Owner {
	trimmed := strings.TrimSpace(sessionID)
	return Owner{SessionID: &trimmed}
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

// IsGuest reports whether the owner is an anonymous session.
func (o Owner) IsGuest() bool {
	return !o.IsUser() && o.SessionID != nil && strings.TrimSpace(*o.SessionID) != ""
}

// Valid reports whether exactly one identity is set.
func (o Owner) Valid() bool {
	return o.IsUser() != (o.SessionID != nil && strings.TrimSpace(*o.SessionID) != "")
}

// Matches reports whether the stored (userID, sessionID) pair belongs to the
// owner. Used for record-level access checks.
func (o Owner) Matches(userID *uuid.UUID, sessionID *string) bool {
	if o.IsUser() {
		return userID != nil && *userID == *o.UserID
	}
	if o.IsGuest() {
		return sessionID != nil && *sessionID == strings.TrimSpace(*o.SessionID)
	}
	return false
}
