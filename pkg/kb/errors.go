package kb

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreConnectivity is matched by every StoreError.
	ErrStoreConnectivity = errors.New("store connectivity failure")

	// ErrReadOnly is returned when a read-only knowledge base is updated.
	ErrReadOnly = errors.New("knowledge base is read-only")

	// ErrUnknownKnowledgeBase is returned for an ID that is not registered.
	ErrUnknownKnowledgeBase = errors.New("unknown knowledge base")

	// ErrAlreadyRegistered is returned when an ID is registered twice.
	ErrAlreadyRegistered = errors.New("knowledge base already registered")

	// ErrConnectionClosed is returned when a closed connection is used.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNotWritable is returned when a read connection is written to.
	// Writes go through Service.Update.
	ErrNotWritable = errors.New("connection is not inside an update")
)

// StoreError reports that the repository of a knowledge base could not be
// reached or could not complete a transaction.
type StoreError struct {
	KnowledgeBase string
	Op            string
	Err           error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%v: kb %s: %s: %v", ErrStoreConnectivity, e.KnowledgeBase, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreConnectivity, e.Err}
}
