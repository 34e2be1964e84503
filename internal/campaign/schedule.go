package campaign

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

// localLayouts are the wall-clock formats accepted for a Specific choice.
// The first is what an HTML datetime-local input submits.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// zoneAliases maps the abbreviations offered in the coach UI to IANA zones.
var zoneAliases = map[string]string{
	"EST":  "America/New_York",
	"CST":  "America/Chicago",
	"MST":  "America/Denver",
	"PST":  "America/Los_Angeles",
	"GMT":  "Etc/GMT",
	"CET":  "Europe/Paris",
	"JST":  "Asia/Tokyo",
	"AEST": "Australia/Sydney",
}

var cadenceSpecs = map[model.Cadence]string{
	model.CadenceDaily:   "@daily",
	model.CadenceWeekly:  "@weekly",
	model.CadenceMonthly: "@monthly",
}

// CadenceSpec returns the cron descriptor for c.
func CadenceSpec(c model.Cadence) (string, error) {
	spec, ok := cadenceSpecs[model.Cadence(strings.ToLower(string(c)))]
	if !ok {
		return "", appErrors.NewInvalidSchedule(fmt.Sprintf("unknown cadence %q", c))
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", appErrors.NewInvalidSchedule(fmt.Sprintf("cadence %q: %v", c, err))
	}
	return spec, nil
}

// LoadLocation resolves a timezone identifier, accepting the UI abbreviations.
func LoadLocation(id string) (*time.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty timezone")
	}
	if alias, ok := zoneAliases[strings.ToUpper(id)]; ok {
		id = alias
	}
	return time.LoadLocation(id)
}

// Resolver turns scheduling choices into dispatch timings.
type Resolver struct {
	// DefaultLocation is used when the client's timezone is unknown. UTC when nil.
	DefaultLocation *time.Location
}

// LocationFor picks the client's zone, then the coach default, then UTC.
func (r Resolver) LocationFor(timezone string) *time.Location {
	if loc, err := LoadLocation(timezone); err == nil {
		return loc
	}
	if r.DefaultLocation != nil {
		return r.DefaultLocation
	}
	return time.UTC
}

// Resolve normalises choice. loc is the zone a Specific local time is read in.
func (r Resolver) Resolve(choice model.SchedulingChoice, loc *time.Location) (model.DispatchTiming, error) {
	switch choice.Option {
	case "", model.ScheduleNow:
		return model.DispatchTiming{Kind: model.TimingImmediate}, nil

	case model.ScheduleSpecific:
		raw := strings.TrimSpace(choice.LocalTime)
		if raw == "" {
			return model.DispatchTiming{}, appErrors.NewInvalidSchedule("specific time requires a date and time")
		}
		if loc == nil {
			loc = r.LocationFor("")
		}
		at, err := parseLocal(raw, loc)
		if err != nil {
			return model.DispatchTiming{}, appErrors.NewInvalidSchedule(fmt.Sprintf("cannot parse %q as a date and time", raw))
		}
		utc := at.UTC()
		return model.DispatchTiming{Kind: model.TimingAt, SendAt: &utc}, nil

	case model.ScheduleRecurring:
		if _, err := CadenceSpec(choice.Cadence); err != nil {
			return model.DispatchTiming{}, err
		}
		return model.DispatchTiming{
			Kind:    model.TimingRecurring,
			Cadence: model.Cadence(strings.ToLower(string(choice.Cadence))),
		}, nil
	}
	return model.DispatchTiming{}, appErrors.NewInvalidSchedule(fmt.Sprintf("unknown scheduling option %q", choice.Option))
}

func parseLocal(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
