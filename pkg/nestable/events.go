package nestable

import "github.com/google/uuid"

func newEventID() string {
	return uuid.NewString()
}

// emit buffers an event for the registry. It is published only if the
// transaction commits.
func (registry *Registry) emit(txn *transaction, event Event) {
	event.Registry = registry.id
	txn.emit(event)
}

func childRef(ref TokenRef) *TokenRef {
	copied := ref
	return &copied
}
