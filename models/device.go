package models

import "time"

// Device is a push delivery endpoint. ID is the owner id when known, otherwise the token itself.
type Device struct {
	ID        string    `bson:"id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	OwnerID   string    `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Platform  string    `bson:"platform" json:"platform"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DeviceID returns the registry key for a token/owner pair.
func DeviceID(ownerID, token string) string {
	if ownerID != "" {
		return ownerID
	}
	return token
}
