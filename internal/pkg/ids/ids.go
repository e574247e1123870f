package ids

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type Generator interface {
	NewID() string
}

// UUID generates random version 4 UUIDs for campaign records.
type UUID struct{}

func (UUID) NewID() string {
	return uuid.NewString()
}

// ULID returns a lexically sortable id for requests, messages and
// transition requests.
func ULID() string {
	return ulid.Make().String()
}
