// internal/model/coach.go
package model

import "time"

// CoachSession is the persisted identity of a logged-in coach.
type CoachSession struct {
	CoachID      string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	ChannelToken string    `bson:"channel_token" json:"whatsapp_token"`
	Timezone     string    `bson:"timezone" json:"timezone"`
	Demo         bool      `bson:"demo" json:"demo"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	// Persisted is false while the session only lives in this process.
	Persisted bool `bson:"-" json:"persisted"`
}
