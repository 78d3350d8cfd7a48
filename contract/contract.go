//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chathub/domain/event"
)

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives real-time events for one consumer: a live connection,
// the search indexer, or the telemetry recorder.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ConnID identifies one live connection. A user with several simultaneous
// connections owns several ConnIDs.
type ConnID string

// IRegistry is the broadcast-group membership table. Join, leave and
// broadcast are serialized against each other.
type IRegistry interface {
	AddConnection(id ConnID, sink EventSink)
	RemoveConnection(id ConnID)
	Join(id ConnID, group string)
	Leave(id ConnID, group string)
	Groups(id ConnID) []string
	Broadcast(ctx context.Context, group string, e event.DomainEvent, except ConnID)
	BroadcastAll(ctx context.Context, e event.DomainEvent, except ConnID)
}
