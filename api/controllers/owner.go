package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/api/middleware"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

// currentUserID returns the authenticated caller's id from the request context.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// resolveOwner prefers the authenticated user and falls back to the guest
// session lifted from the query string.
func resolveOwner(r *http.Request) (types.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return types.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return types.UserOwner(id), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return types.GuestOwner(sessionID), nil
	}
	return types.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication or sessionId required")
}

// maybeOwner resolves the caller identity without requiring one. Order
// handlers use it so the service decides how an absent owner is reported.
func maybeOwner(r *http.Request) (types.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return types.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return types.UserOwner(id), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return types.GuestOwner(sessionID), nil
	}
	return types.Owner{}, nil
}
