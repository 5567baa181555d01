// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package schema

// MessageTable represents the 'message' table
type MessageTable struct {
	Table       string
	MessageID   string
	SenderUID   string
	ReceiverUID string
	Content     string
	CreatedAt   string
}

// Message is the schema definition for message
var Message = MessageTable{
	Table:       "message",
	MessageID:   "message_id",
	SenderUID:   "sender_uid",
	ReceiverUID: "receiver_uid",
	Content:     "content",
	CreatedAt:   "created_at",
}
