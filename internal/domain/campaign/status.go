package campaign

import (
	"fmt"
	"strings"
	"time"

	xerrors "obcampaign-service/internal/pkg/errors"
)

type Status string

const (
	StatusStop     Status = "stop"
	StatusStart    Status = "start"
	StatusStarting Status = "starting"
	StatusStopping Status = "stopping"
	StatusPause    Status = "pause"
	StatusPausing  Status = "pausing"
)

var statuses = []Status{
	StatusStop, StatusStart, StatusStarting, StatusStopping, StatusPause, StatusPausing,
}

// Statuses lists every valid status value.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", xerrors.Invalid("unknown campaign status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Verb is the effect verb logged and sent to the executor for a status.
func (s Status) Verb() string {
	switch s {
	case StatusStart:
		return "run"
	case StatusStop:
		return "stop"
	case StatusPause:
		return "pause"
	case StatusStarting:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusPausing:
		return "pausing"
	}
	return ""
}

// IsTransitional reports whether the executor is still working on s.
func (s Status) IsTransitional() bool {
	return s == StatusStarting || s == StatusStopping || s == StatusPausing
}

// Terminal returns the status the executor settles on once s completes.
// Terminal statuses map to themselves.
func (s Status) Terminal() Status {
	switch s {
	case StatusStarting:
		return StatusStart
	case StatusStopping:
		return StatusStop
	case StatusPausing:
		return StatusPause
	}
	return s
}

type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionStop, ActionPause, ActionResume:
		return a, nil
	}
	return "", xerrors.Invalid("unknown campaign action %q", s)
}

type transitionKey struct {
	from   Status
	action Action
}

var transitions = map[transitionKey]Status{
	{StatusStop, ActionStart}:   StatusStarting,
	{StatusStart, ActionStop}:   StatusStopping,
	{StatusStart, ActionPause}:  StatusPausing,
	{StatusPause, ActionResume}: StatusStarting,
	{StatusPause, ActionStart}:  StatusStarting,
}

// RequestTransition returns the transitional marker to record when action
// is requested on a campaign in status from.
func RequestTransition(from Status, action Action) (Status, error) {
	to, ok := transitions[transitionKey{from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a campaign in status %s", xerrors.ErrInvalidTransition, action, from)
	}
	return to, nil
}

// TransitionRequest is handed to the executor that completes a transition.
type TransitionRequest struct {
	ID           string    `json:"id"`
	CampaignUUID string    `json:"campaign_uuid"`
	Action       Action    `json:"action"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	Verb         string    `json:"verb"`
	Reason       string    `json:"reason"`
	RequestedAt  time.Time `json:"requested_at"`
}

const (
	ReasonSchedule = "schedule"
	ReasonManual   = "manual"
)
