package entity

import (
	"strings"
	"time"
)

// User holds no payment credentials; gateway keys live in the secret store keyed by user ID.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	FirstName string    `bson:"firstName" json:"firstName"`
	LastName  string    `bson:"lastName" json:"lastName"`
	Email     string    `bson:"email" json:"email"`
	Role      string    `bson:"role,omitempty" json:"role,omitempty"`
	Cart      Cart      `bson:"cart" json:"cart"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) Snapshot() PartySnapshot {
	return PartySnapshot{Name: u.DisplayName(), UserID: u.ID, Email: u.Email}
}

func (u *User) AsAuthor() Author {
	return Author{Name: u.DisplayName(), UserID: u.ID}
}
