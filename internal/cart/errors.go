package cart

import "fmt"

// StorageReadError reports a persisted cart that could not be decoded. Load
// recovers from it by starting with an empty cart; it is only logged.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("malformed cart under key %q: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }
