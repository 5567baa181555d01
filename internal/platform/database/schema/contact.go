// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package schema

// ContactTable represents the 'contact' table
type ContactTable struct {
	Table         string
	ContactID     string
	UserID        string
	ContactUserID string
	Status        string
	CreatedAt     string
}

// Contact is the schema definition for contact
var Contact = ContactTable{
	Table:         "contact",
	ContactID:     "contact_id",
	UserID:        "user_id",
	ContactUserID: "contact_user_id",
	Status:        "status",
	CreatedAt:     "created_at",
}
