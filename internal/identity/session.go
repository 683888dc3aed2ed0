// Package identity covers the identity-provider boundary: who the
// current user is, and who a message sender is.
package identity

// Provider resolves the current authenticated user. The subsystem never
// manages tokens itself; it only asks whether a user is resolvable.
type Provider interface {
	// CurrentUserID returns the current user id, or false when no user
	// is authenticated.
	CurrentUserID() (string, bool)
}

// StaticProvider is a config-backed Provider for a single fixed user.
type StaticProvider struct {
	userID string
}

// NewStaticProvider returns a Provider fixed to userID. An empty id
// means unauthenticated.
func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{userID: userID}
}

func (p *StaticProvider) CurrentUserID() (string, bool) {
	return p.userID, p.userID != ""
}
