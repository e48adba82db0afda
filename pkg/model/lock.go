package model

import "time"

// Lock is the document form of a lock held in the Mongo coordination store.
// Token identifies the acquisition that owns it.
type Lock struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
