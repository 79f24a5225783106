package models

import "fmt"

// ActorKind distinguishes authenticated users from anonymous browser clients.
type ActorKind string

const (
	ActorUser   ActorKind = "user"
	ActorClient ActorKind = "client"
)

// Actor identifies who performed a write. It holds exactly one identity: a user id
// when the request carried an authenticated session, otherwise an anonymous client id.
type Actor struct {
	Kind ActorKind `gorm:"size:16;not null" json:"kind"`
	ID   string    `gorm:"size:128;not null" json:"id"`
}

// UserActor returns an actor for an authenticated user.
func UserActor(userID string) Actor {
	return Actor{Kind: ActorUser, ID: userID}
}

// ClientActor returns an actor for an anonymous client.
func ClientActor(clientID string) Actor {
	return Actor{Kind: ActorClient, ID: clientID}
}

// IsZero reports whether the actor carries no identity.
func (a Actor) IsZero() bool {
	return a.ID == "" || a.Kind == ""
}

// Valid reports whether the actor has a known kind and a non-empty id.
func (a Actor) Valid() bool {
	return (a.Kind == ActorUser || a.Kind == ActorClient) && a.ID != ""
}

// Is reports whether both actors are the same identity.
func (a Actor) Is(other Actor) bool {
	return a.Valid() && a.Kind == other.Kind && a.ID == other.ID
}

// String renders the actor as kind:id, which is also used as a rate-limit key.
func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}
