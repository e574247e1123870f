// internal/domain/campaign/dto.go
package campaign

import (
	"bytes"
	"encoding/json"

	xerrors "obcampaign-service/internal/pkg/errors"
)

// CampaignRequest carries the caller supplied fields for create and update.
// Omitted or null fields are left as they are; an empty string clears a
// text field.
type CampaignRequest struct {
	Name   *string `json:"name"`
	Detail *string `json:"detail"`
	Status *string `json:"status"`

	Plan         *string `json:"plan"`
	Dlma         *string `json:"dlma"`
	Dest         *string `json:"dest"`
	NextCampaign *string `json:"next_campaign"`

	ScheduleMode     *string   `json:"sc_mode"`
	ScDateStart      *string   `json:"sc_date_start"`
	ScDateEnd        *string   `json:"sc_date_end"`
	ScDateList       *DateList `json:"sc_date_list"`
	ScDateListExcept *DateList `json:"sc_date_list_except"`
	ScTimeStart      *string   `json:"sc_time_start"`
	ScTimeEnd        *string   `json:"sc_time_end"`
	ScDayList        *DayList  `json:"sc_day_list"`

	Variables json.RawMessage `json:"variables"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ReferenceResponse struct {
	Kind       RefKind `json:"kind"`
	ID         string  `json:"id"`
	Referenced bool    `json:"referenced"`
}

// Validate rejects a request whose variables are present but not a JSON
// object, whose enums are unknown, or whose schedule values are not zero
// padded dates and times. An empty string is accepted and clears the field.
func (r *CampaignRequest) Validate() error {
	if r == nil {
		return xerrors.Invalid("campaign request is required")
	}
	if r.Variables != nil {
		trimmed := bytes.TrimSpace(r.Variables)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return xerrors.Wrap(xerrors.ErrValidation, "variables must be a key/value object")
		}
		var probe map[string]interface{}
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return xerrors.Wrap(xerrors.ErrValidation, "variables must be a key/value object")
		}
	}
	if r.Status != nil {
		if _, err := ParseStatus(*r.Status); err != nil {
			return err
		}
	}
	if r.ScheduleMode != nil {
		if _, err := ParseScheduleMode(*r.ScheduleMode); err != nil {
			return err
		}
	}
	if err := checkFormat("sc_date_start", r.ScDateStart, ValidDate, "YYYY-MM-DD"); err != nil {
		return err
	}
	if err := checkFormat("sc_date_end", r.ScDateEnd, ValidDate, "YYYY-MM-DD"); err != nil {
		return err
	}
	if err := checkFormat("sc_time_start", r.ScTimeStart, ValidTime, "HH:MM:SS"); err != nil {
		return err
	}
	if err := checkFormat("sc_time_end", r.ScTimeEnd, ValidTime, "HH:MM:SS"); err != nil {
		return err
	}
	if err := checkDates("sc_date_list", r.ScDateList); err != nil {
		return err
	}
	if err := checkDates("sc_date_list_except", r.ScDateListExcept); err != nil {
		return err
	}
	if r.ScDayList != nil {
		for _, d := range *r.ScDayList {
			if d < 0 || d > 6 {
				return xerrors.Wrap(xerrors.ErrValidation, "sc_day_list entries must be between 0 and 6")
			}
		}
	}
	return nil
}

// ApplyTo overlays the request onto c. Validate must have passed.
func (r *CampaignRequest) ApplyTo(c *Campaign) error {
	setText(&c.Name, r.Name)
	setText(&c.Detail, r.Detail)
	setText(&c.Plan, r.Plan)
	setText(&c.Dlma, r.Dlma)
	setText(&c.Dest, r.Dest)
	setText(&c.NextCampaign, r.NextCampaign)
	setText(&c.ScDateStart, r.ScDateStart)
	setText(&c.ScDateEnd, r.ScDateEnd)
	setText(&c.ScTimeStart, r.ScTimeStart)
	setText(&c.ScTimeEnd, r.ScTimeEnd)

	if r.Status != nil {
		st, err := ParseStatus(*r.Status)
		if err != nil {
			return err
		}
		c.Status = st
	}
	if r.ScheduleMode != nil {
		mode, err := ParseScheduleMode(*r.ScheduleMode)
		if err != nil {
			return err
		}
		c.ScheduleMode = mode
	}
	if r.ScDateList != nil {
		c.ScDateList = *r.ScDateList
	}
	if r.ScDateListExcept != nil {
		c.ScDateListExcept = *r.ScDateListExcept
	}
	if r.ScDayList != nil {
		c.ScDayList = *r.ScDayList
	}
	if r.Variables != nil {
		vars := map[string]interface{}{}
		if err := json.Unmarshal(r.Variables, &vars); err != nil {
			return xerrors.Wrap(xerrors.ErrValidation, "variables must be a key/value object")
		}
		c.Variables = vars
	}
	return nil
}

func checkFormat(field string, v *string, valid func(string) bool, layout string) error {
	if v == nil || *v == "" || valid(*v) {
		return nil
	}
	return xerrors.Wrap(xerrors.ErrValidation, field+" must be "+layout)
}

func checkDates(field string, l *DateList) error {
	if l == nil {
		return nil
	}
	for _, d := range *l {
		if !ValidDate(d) {
			return xerrors.Wrap(xerrors.ErrValidation, field+" entries must be YYYY-MM-DD")
		}
	}
	return nil
}

func setText(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}
