package entity

import "time"

// Conversation is a titled, ordered message thread identified by an opaque id.
// Ids are assigned by the store when possible and generated locally otherwise;
// a locally created conversation has no remote record until its first message
// is persisted.
type Conversation struct {
	Id        string
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
