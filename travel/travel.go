package travel

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ukaku-studio/bokutabi/draft"
	"github.com/ukaku-studio/bokutabi/models"
)

const (
	ModeWalking = "walking"
	ModeTransit = "transit"
	ModeDriving = "driving"
)

// Suggestion is an estimated commute between two consecutive stops. Ephemeral,
// never persisted.
type Suggestion struct {
	Mode            string `json:"mode"`
	DurationMinutes int    `json:"durationMinutes"`
}

var (
	ErrNoBaseTime = errors.New("previous stop has no parseable time")
	ErrNoLocation = errors.New("both stops need a location")
)

// hashRoute derives a stable value from the location pair. A deterministic
// hash instead of a random source keeps identical pairs yielding identical
// suggestions; this stands in for a real routing service.
func hashRoute(from, to string) int {
	h := 0
	for _, r := range from + "::" + to {
		h = (h*31 + int(r)) % 1000
	}
	return h
}

// Suggest proposes walking, transit and driving durations between two
// locations. Pure function of the two strings: the transit estimate is
// 30-90 minutes, walking adds 30, driving subtracts 15 with a 15-minute floor.
func Suggest(from, to string) []Suggestion {
	base := 30 + hashRoute(from, to)%61
	driving := base - 15
	if driving < 15 {
		driving = 15
	}
	return []Suggestion{
		{Mode: ModeWalking, DurationMinutes: base + 30},
		{Mode: ModeTransit, DurationMinutes: base},
		{Mode: ModeDriving, DurationMinutes: driving},
	}
}

// CanSuggest reports whether the pair qualifies for suggestions: the previous
// stop needs a parseable time and a location, the current stop a location.
func CanSuggest(prev, cur models.Entry) bool {
	return timePattern.MatchString(prev.Time) && prev.Location != "" && cur.Location != ""
}

// Arrival is a clock time plus the number of calendar days crossed.
type Arrival struct {
	Time      string `json:"time"`
	DayOffset int    `json:"dayOffset"`
}

// Strict two-digit fields; "9:00" is rejected.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ComputeArrival adds durationMinutes to an HH:MM base time, wrapping past
// midnight. Returns nil when the base time does not parse.
func ComputeArrival(baseTime string, durationMinutes int) *Arrival {
	m := timePattern.FindStringSubmatch(baseTime)
	if m == nil {
		return nil
	}
	hours := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	minutes := int(m[2][0]-'0')*10 + int(m[2][1]-'0')

	total := hours*60 + minutes + durationMinutes
	day := 0
	for total < 0 {
		total += 24 * 60
		day--
	}
	day += total / (24 * 60)
	total %= 24 * 60

	return &Arrival{
		Time:      fmt.Sprintf("%02d:%02d", total/60, total%60),
		DayOffset: day,
	}
}

// AddDays advances an ISO date by n calendar days.
func AddDays(date string, days int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format("2006-01-02")
}

// Apply writes the arrival computed from the stop at baseIndex onto the stop
// at targetIndex. The suggestion already carries the correct forward date, so
// the update must not re-trigger the cascade. Overwrite confirmation for an
// already-set target time is the caller's concern.
func Apply(s *draft.Store, baseIndex, targetIndex int, sug Suggestion) error {
	base, ok := s.Entry(baseIndex)
	if !ok {
		return draft.ErrIndexOutOfRange
	}
	target, ok := s.Entry(targetIndex)
	if !ok {
		return draft.ErrIndexOutOfRange
	}

	arrival := ComputeArrival(base.Time, sug.DurationMinutes)
	if arrival == nil {
		return ErrNoBaseTime
	}

	patch := draft.Patch{Time: &arrival.Time}
	switch {
	case arrival.DayOffset > 0 && base.Date != "":
		d := AddDays(base.Date, arrival.DayOffset)
		patch.Date = &d
	case target.Date == "" && base.Date != "":
		d := base.Date
		patch.Date = &d
	}

	return s.UpdateWithoutCascade(targetIndex, patch)
}
