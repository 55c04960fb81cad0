package models

import "time"

// UserProfile lives at users/{uid}. Address stays empty until the first checkout sets it.
type UserProfile struct {
	ID       string `bson:"-" json:"id"`
	FullName string `bson:"fullName" json:"fullName"`
	Email    string `bson:"email" json:"email"`
	Address  string `bson:"address,omitempty" json:"address,omitempty"`
}

// Account holds credentials for the session provider, keyed by lowercased email.
type Account struct {
	UserID       string    `bson:"userId" json:"userId"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
