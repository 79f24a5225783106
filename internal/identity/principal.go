package identity

import "inkwell/internal/models"

// Principal is the resolved caller of one request.
type Principal struct {
	// Actor is nil when the caller supplied neither a session nor a client id.
	Actor *models.Actor
	// ClientID is the anonymous browser id sent with the request. It is kept when a session
	// wins the Actor, so content written as a guest stays the caller's.
	ClientID string
	Admin    bool
}

// Anonymous is the principal of a request that carried no identity.
var Anonymous = Principal{}

// HasActor reports whether the caller can be attributed a write.
func (p Principal) HasActor() bool {
	return p.Actor != nil && p.Actor.Valid()
}

// UserID returns the authenticated user id, if any.
func (p Principal) UserID() (string, bool) {
	if p.Actor != nil && p.Actor.Kind == models.ActorUser {
		return p.Actor.ID, true
	}
	return "", false
}

// WithClientID returns a copy carrying clientID. The client id becomes the actor only when
// the caller has no session; an authenticated session always wins.
func (p Principal) WithClientID(clientID string) Principal {
	if !ValidClientID(clientID) {
		return p
	}
	p.ClientID = clientID
	if !p.HasActor() {
		a := models.ClientActor(clientID)
		p.Actor = &a
	}
	return p
}

// OwnsAsClient reports whether author is the caller's anonymous client id, whether that id
// is the actor or rides along with a session.
func (p Principal) OwnsAsClient(author models.Actor) bool {
	if author.Kind != models.ActorClient {
		return false
	}
	if p.Actor != nil && p.Actor.Kind == models.ActorClient && p.Actor.ID == author.ID {
		return true
	}
	return p.ClientID != "" && p.ClientID == author.ID
}

// Owns reports whether the caller is the stored author, either through its actor or
// through the client id it still carries.
func (p Principal) Owns(author models.Actor) bool {
	return (p.Actor != nil && p.Actor.Is(author)) || p.OwnsAsClient(author)
}
