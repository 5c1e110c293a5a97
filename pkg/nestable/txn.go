package nestable

import (
	"context"
)

type scopeContextKey struct{}

type actorContextKey struct{}

// scope marks a context as already holding the directory lock. txn is nil
// for read scopes.
type scope struct {
	directory *Directory
	txn       *transaction
}

// actor identifies the native registry making a cross-registry call and
// the registry it is calling. Only this package can attach one.
type actor struct {
	from RegistryID
	to   RegistryID
}

type transaction struct {
	op      string
	undo    []func()
	events  []Event
	guards  map[TokenRef]struct{}
	touched map[TokenRef]struct{}
}

func newTransaction(op string) *transaction {
	return &transaction{
		op:      op,
		undo:    make([]func(), 0, 8),
		events:  make([]Event, 0, 4),
		guards:  map[TokenRef]struct{}{},
		touched: map[TokenRef]struct{}{},
	}
}

func scopeFrom(ctx context.Context, directory *Directory) (scope, bool) {
	if ctx == nil {
		return scope{}, false
	}
	current, ok := ctx.Value(scopeContextKey{}).(scope)
	if !ok || current.directory != directory {
		return scope{}, false
	}
	return current, true
}

func withScope(ctx context.Context, current scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, current)
}

func withActor(ctx context.Context, from RegistryID, to RegistryID) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor{from: from, to: to})
}

// callerRegistry returns the native registry that is calling into callee,
// if any.
func callerRegistry(ctx context.Context, callee RegistryID) (RegistryID, bool) {
	value, ok := ctx.Value(actorContextKey{}).(actor)
	if !ok || value.to != callee {
		return "", false
	}
	return value.from, true
}

// record registers an undo step. Steps run in reverse order on rollback.
func (txn *transaction) record(step func()) {
	txn.undo = append(txn.undo, step)
}

func (txn *transaction) emit(event Event) {
	txn.events = append(txn.events, event)
}

// guard marks ref as being mutated. The returned release must be called
// once the mutation, including any nested calls, has finished.
func (txn *transaction) guard(ref TokenRef) (func(), error) {
	if _, held := txn.guards[ref]; held {
		return nil, NewReentrancyError(ref)
	}
	txn.guards[ref] = struct{}{}
	return func() { delete(txn.guards, ref) }, nil
}

// firstTouch reports whether ref is being modified for the first time in
// this transaction.
func (txn *transaction) firstTouch(ref TokenRef) bool {
	if _, seen := txn.touched[ref]; seen {
		return false
	}
	txn.touched[ref] = struct{}{}
	return true
}

func (txn *transaction) rollback() {
	for index := len(txn.undo) - 1; index >= 0; index-- {
		txn.undo[index]()
	}
	txn.undo = nil
	txn.events = nil
}
