package models

import "time"

type RefreshToken struct {
	UserID          string    `bson:"userId" json:"userId"`
	Email           string    `bson:"email" json:"email"`
	ExpiresAt       time.Time `bson:"expiresAt" json:"expiresAt"`
	Revoked         bool      `bson:"revoked" json:"revoked"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	ReplacedByToken string    `bson:"replacedByToken,omitempty" json:"replacedByToken,omitempty"`
}
