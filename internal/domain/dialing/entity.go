// internal/domain/dialing/entity.go
package dialing

import "time"

// Plan describes the dialing strategy a campaign runs with. Only the
// fields the campaign statistics depend on are loaded.
type Plan struct {
	UUID     string    `json:"uuid" db:"uuid"`
	Name     *string   `json:"name" db:"name"`
	MaxRetry int       `json:"max_retry" db:"max_retry"`
	TmCreate time.Time `json:"tm_create" db:"tm_create"`
}

// Dlma is a destination list a campaign dials from.
type Dlma struct {
	UUID     string    `json:"uuid" db:"uuid"`
	Name     *string   `json:"name" db:"name"`
	TmCreate time.Time `json:"tm_create" db:"tm_create"`
}

// Dial list entry states in ob_dl_list.status
const (
	EntryIdle     = "idle"
	EntryDialing  = "dialing"
	EntryFinished = "finished"
)
