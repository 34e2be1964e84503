// internal/model/schedule.go
package model

import (
	"fmt"
	"time"
)

type ScheduleOption string

const (
	ScheduleNow       ScheduleOption = "now"
	ScheduleSpecific  ScheduleOption = "specific"
	ScheduleRecurring ScheduleOption = "recurring"
)

type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// SchedulingChoice is a tagged union: only the field matching Option is meaningful.
type SchedulingChoice struct {
	Option    ScheduleOption `json:"option"`
	LocalTime string         `json:"datetime,omitempty"`
	Cadence   Cadence        `json:"cadence,omitempty"`
}

func Now() SchedulingChoice { return SchedulingChoice{Option: ScheduleNow} }

func Specific(localTime string) SchedulingChoice {
	return SchedulingChoice{Option: ScheduleSpecific, LocalTime: localTime}
}

func Recurring(c Cadence) SchedulingChoice {
	return SchedulingChoice{Option: ScheduleRecurring, Cadence: c}
}

type TimingKind string

const (
	TimingImmediate TimingKind = "immediate"
	TimingAt        TimingKind = "at"
	TimingRecurring TimingKind = "recurring"
)

// DispatchTiming is the resolved form of a SchedulingChoice. SendAt is always UTC.
type DispatchTiming struct {
	Kind    TimingKind `json:"kind"`
	SendAt  *time.Time `json:"send_at,omitempty"`
	Cadence Cadence    `json:"cadence,omitempty"`
}

func (t DispatchTiming) String() string {
	switch t.Kind {
	case TimingAt:
		if t.SendAt != nil {
			return fmt.Sprintf("at %s", t.SendAt.Format(time.RFC3339))
		}
	case TimingRecurring:
		return fmt.Sprintf("every %s", t.Cadence)
	}
	return "now"
}
