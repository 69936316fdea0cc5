package core

// SessionStore persists sessions and their evolving state / event history.
// Sessions are scoped by application name and user id; the store assigns
// the session id on Create.
type SessionStore interface {
	Create(appName, userID string) (*Session, error)
	Get(sessionID string) (*Session, error)
	AppendEvent(sessionID string, event Event) error
	ApplyDelta(sessionID string, delta map[string]any) error
}

// ArtifactStore keeps versioned binary artifacts scoped by session. Save
// returns the version number assigned to the stored bytes (starting at 1);
// Get returns the latest version.
type ArtifactStore interface {
	Save(sessionID, name string, data []byte) (int, error)
	Get(sessionID, name string) ([]byte, error)
	Versions(sessionID, name string) ([]int, error)
	List(sessionID string) ([]string, error)
	Delete(sessionID, name string) error
}
