// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package contact models the directional relationship between two accounts.

Rows are created by the contact workflow. Account operations only read the
accepted status for shadow-mode visibility and remove every row touching an
account when it is purged.
*/
package contact

import (
	"errors"
	"slices"
	"time"
)

// ErrUnknownStatus is returned when a stored row carries a status this build
// does not know.
var ErrUnknownStatus = errors.New("contact: unknown status")

// Status is the state of a relationship as seen by its owning side.
type Status string

const (
	StatusIncomingRequest Status = "incoming_request"
	StatusOutgoingRequest Status = "outgoing_request"
	StatusAccepted        Status = "accepted"
	StatusRejected        Status = "rejected"
	StatusBlocked         Status = "blocked"
	StatusDeleted         Status = "deleted"
)

// statuses lists every stored status in declaration order.
var statuses = []Status{
	StatusIncomingRequest,
	StatusOutgoingRequest,
	StatusAccepted,
	StatusRejected,
	StatusBlocked,
	StatusDeleted,
}

// Valid reports whether s is one of the stored statuses.
func (s Status) Valid() bool {
	return slices.Contains(statuses, s)
}

// Contact is one directional row: UserID's view of ContactUserID.
type Contact struct {
	ContactID     int64     `json:"contact_id"`
	UserID        int64     `json:"user_id"`
	ContactUserID int64     `json:"contact_user_id"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
