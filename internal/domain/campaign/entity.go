// internal/domain/campaign/entity.go
package campaign

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	xerrors "obcampaign-service/internal/pkg/errors"
)

type ScheduleMode string

const (
	ScheduleOff ScheduleMode = "off"
	ScheduleOn  ScheduleMode = "on"
)

func ParseScheduleMode(s string) (ScheduleMode, error) {
	switch m := ScheduleMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ScheduleOff, ScheduleOn:
		return m, nil
	}
	return "", xerrors.Invalid("unknown schedule mode %q", s)
}

// Campaign is a full snapshot of one ob_campaign record.
type Campaign struct {
	UUID   string  `json:"uuid" db:"uuid"`
	Name   *string `json:"name" db:"name"`
	Detail *string `json:"detail" db:"detail"`
	Status Status  `json:"status" db:"status"`

	// References to plan, destination list and destination
	Plan         *string `json:"plan" db:"plan"`
	Dlma         *string `json:"dlma" db:"dlma"`
	Dest         *string `json:"dest" db:"dest"`
	NextCampaign *string `json:"next_campaign" db:"next_campaign"`

	// Schedule
	ScheduleMode     ScheduleMode `json:"sc_mode" db:"sc_mode"`
	ScDateStart      *string      `json:"sc_date_start" db:"sc_date_start"`
	ScDateEnd        *string      `json:"sc_date_end" db:"sc_date_end"`
	ScDateList       DateList     `json:"sc_date_list" db:"sc_date_list"`
	ScDateListExcept DateList     `json:"sc_date_list_except" db:"sc_date_list_except"`
	ScTimeStart      *string      `json:"sc_time_start" db:"sc_time_start"`
	ScTimeEnd        *string      `json:"sc_time_end" db:"sc_time_end"`
	ScDayList        DayList      `json:"sc_day_list" db:"sc_day_list"`

	Variables map[string]interface{} `json:"variables" db:"variables"`

	// Timestamps
	TmCreate time.Time  `json:"tm_create" db:"tm_create"`
	TmUpdate *time.Time `json:"tm_update" db:"tm_update"`
	TmDelete *time.Time `json:"tm_delete" db:"tm_delete"`

	InUse bool `json:"in_use" db:"in_use"`
}

// Default returns the snapshot every new campaign starts from.
func Default() *Campaign {
	return &Campaign{
		Status:       StatusStop,
		ScheduleMode: ScheduleOff,
		Variables:    map[string]interface{}{},
		InUse:        true,
	}
}

// Reference returns the identifier held in the given reference field.
func (c *Campaign) Reference(kind RefKind) *string {
	switch kind {
	case RefPlan:
		return c.Plan
	case RefDlma:
		return c.Dlma
	case RefDest:
		return c.Dest
	}
	return nil
}

// ClearReference unsets the given reference field.
func (c *Campaign) ClearReference(kind RefKind) {
	switch kind {
	case RefPlan:
		c.Plan = nil
	case RefDlma:
		c.Dlma = nil
	case RefDest:
		c.Dest = nil
	}
}

// DateList is a set of YYYY-MM-DD dates. It decodes from a JSON array or
// from a comma separated string.
type DateList []string

func (l DateList) Contains(date string) bool {
	for _, d := range l {
		if d == date {
			return true
		}
	}
	return false
}

func (l *DateList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = normalizeDates(items)
		return nil
	}

	var joined *string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("date list must be an array or a comma separated string: %w", err)
	}
	if joined == nil {
		*l = nil
		return nil
	}
	*l = normalizeDates(strings.Split(*joined, ","))
	return nil
}

func normalizeDates(items []string) DateList {
	out := make(DateList, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DayList is a set of weekday codes, 0=Sunday ... 6=Saturday.
type DayList []int

func (l DayList) Contains(day int) bool {
	for _, d := range l {
		if d == day {
			return true
		}
	}
	return false
}

func (l *DayList) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err == nil {
		*l = normalizeDays(days)
		return nil
	}

	var joined *string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("day list must be an array or a comma separated string: %w", err)
	}
	if joined == nil {
		*l = nil
		return nil
	}

	days = days[:0]
	for _, part := range strings.Split(*joined, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid weekday %q: %w", part, err)
		}
		days = append(days, d)
	}
	*l = normalizeDays(days)
	return nil
}

func normalizeDays(days []int) DayList {
	if len(days) == 0 {
		return nil
	}
	return DayList(days)
}

type RefKind string

const (
	RefPlan RefKind = "plan"
	RefDlma RefKind = "dlma"
	RefDest RefKind = "dest"
)

func (k RefKind) Valid() bool {
	switch k {
	case RefPlan, RefDlma, RefDest:
		return true
	}
	return false
}

func ParseRefKind(s string) (RefKind, error) {
	switch k := RefKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RefPlan, RefDlma, RefDest:
		return k, nil
	case "destination":
		return RefDest, nil
	}
	return "", xerrors.Invalid("unknown reference kind %q", s)
}

// Reference is an equality predicate on one of the reference fields.
type Reference struct {
	Kind RefKind
	ID   string
}

// Filter selects campaign records. Nil fields do not constrain.
type Filter struct {
	UUID         *string
	Status       *Status
	ScheduleMode *ScheduleMode
	InUse        *bool
	Reference    *Reference
}

// Live restricts f to records with in_use = true.
func (f Filter) Live() Filter {
	inUse := true
	f.InUse = &inUse
	return f
}

// Deleted restricts f to soft deleted records.
func (f Filter) Deleted() Filter {
	inUse := false
	f.InUse = &inUse
	return f
}

func ByUUID(uuid string) Filter {
	return Filter{UUID: &uuid}
}

func ByStatus(status Status) Filter {
	return Filter{Status: &status}
}

func ByStatusSchedule(status Status, mode ScheduleMode) Filter {
	return Filter{Status: &status, ScheduleMode: &mode}
}

func ByReference(kind RefKind, id string) Filter {
	return Filter{Reference: &Reference{Kind: kind, ID: id}}
}

// Stat is the per-campaign dialing statistics snapshot.
type Stat struct {
	UUID               string `json:"uuid"`
	DialTotalCount     int64  `json:"dial_total_count"`
	DialFinishedCount  int64  `json:"dial_finished_count"`
	DialAvailableCount int64  `json:"dial_available_count"`
	DialDialingCount   int64  `json:"dial_dialing_count"`
	DialCalledCount    int64  `json:"dial_called_count"`
}
