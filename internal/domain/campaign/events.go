package campaign

import "time"

type ChangeKind string

const (
	ChangeCreated             ChangeKind = "campaign:created"
	ChangeUpdated             ChangeKind = "campaign:updated"
	ChangeDeleted             ChangeKind = "campaign:deleted"
	ChangeStatus              ChangeKind = "campaign:status_changed"
	ChangeTransitionRequested ChangeKind = "campaign:transition_requested"
)

// Change describes a campaign mutation pushed to connected operators.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	UUID     string     `json:"uuid"`
	Status   Status     `json:"status"`
	Campaign *Campaign  `json:"campaign,omitempty"`
	At       time.Time  `json:"at"`
}
