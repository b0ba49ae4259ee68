package core

import (
	"github.com/google/uuid"
)

// Identifier tags an engine-owned resource (mesh, buffer group, watcher)
// so log lines can be correlated back to the object that emitted them.
type Identifier struct {
	ID uuid.UUID
	// Owner is a short human-readable tag, e.g. "mesh.snow".
	Owner string
}

func NewIdentifier(owner string) Identifier {
	return Identifier{
		ID:    uuid.New(),
		Owner: owner,
	}
}

func (i Identifier) String() string {
	return i.Owner + "/" + i.ID.String()[:8]
}
