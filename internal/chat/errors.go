package chat

import "errors"

// Failure taxonomy surfaced by the facade. Store failures are wrapped
// with %w and carry the underlying driver message.
var (
	// ErrUnauthenticated means no current user is resolvable.
	ErrUnauthenticated = errors.New("no authenticated user")

	// ErrNotFound means the referenced order or conversation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKind means a message or attachment kind outside the
	// closed set was supplied.
	ErrInvalidKind = errors.New("invalid kind")

	// ErrNotParticipant means the sender does not occupy any participant
	// slot of the target conversation.
	ErrNotParticipant = errors.New("sender is not a conversation participant")

	// ErrConnectionClosed means the live connection was already closed.
	ErrConnectionClosed = errors.New("connection closed")
)
