package draft

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/ukaku-studio/bokutabi/models"
)

var (
	// ErrBlankEntryExists means a blank panel is already waiting to be filled in.
	ErrBlankEntryExists = errors.New("a blank stop already exists")
	ErrIndexOutOfRange  = errors.New("entry index out of range")
)

// panel wraps an entry with bookkeeping the editor needs: a stable key that
// survives inserts and deletes, and a revision bumped on every change so
// in-flight geocoding results can be detected as stale.
type panel struct {
	entry models.Entry
	key   uint64
	rev   uint64
}

// Store owns the ordered stop sequence of one draft and is its only sanctioned
// mutation surface. All operations are synchronous and local; callers serialize
// access (the editor session holds a lock around every call).
type Store struct {
	title   string
	panels  []panel
	nextKey uint64
}

// NewStore returns a draft holding a single blank entry.
func NewStore() *Store {
	s := &Store{}
	s.panels = append(s.panels, s.newPanel(NewEntry()))
	return s
}

// FromSnapshot rebuilds a draft from serialized state, normalizing every entry.
func FromSnapshot(title string, entries []models.Entry) *Store {
	s := &Store{title: title}
	for _, e := range entries {
		s.panels = append(s.panels, s.newPanel(Normalize(e)))
	}
	if len(s.panels) == 0 {
		s.panels = append(s.panels, s.newPanel(NewEntry()))
	}
	return s
}

func (s *Store) newPanel(e models.Entry) panel {
	s.nextKey++
	return panel{entry: e, key: s.nextKey}
}

func (s *Store) Title() string { return s.title }

func (s *Store) SetTitle(title string) { s.title = title }

func (s *Store) Len() int { return len(s.panels) }

// Entries returns a copy of the ordered stop sequence.
func (s *Store) Entries() []models.Entry {
	out := make([]models.Entry, len(s.panels))
	for i, p := range s.panels {
		out[i] = p.entry
	}
	return out
}

func (s *Store) Entry(i int) (models.Entry, bool) {
	if i < 0 || i >= len(s.panels) {
		return models.Entry{}, false
	}
	return s.panels[i].entry, true
}

// KeyAt returns the stable key of the panel at i. Keys identify an entry
// across inserts and removals, so selection state never needs re-indexing.
func (s *Store) KeyAt(i int) (uint64, bool) {
	if i < 0 || i >= len(s.panels) {
		return 0, false
	}
	return s.panels[i].key, true
}

// RevAt returns the revision of the panel at i.
func (s *Store) RevAt(i int) (uint64, bool) {
	if i < 0 || i >= len(s.panels) {
		return 0, false
	}
	return s.panels[i].rev, true
}

// IndexOfKey returns the current position of the panel with the given key,
// or -1 if it no longer exists.
func (s *Store) IndexOfKey(key uint64) int {
	for i, p := range s.panels {
		if p.key == key {
			return i
		}
	}
	return -1
}

// IsPristine reports whether the draft is still untouched: no title and no
// modified entry. Only a pristine draft may be overwritten by a resumed snapshot.
func (s *Store) IsPristine() bool {
	if s.title != "" {
		return false
	}
	for _, p := range s.panels {
		if IsModified(p.entry) {
			return false
		}
	}
	return true
}

// Append adds a blank entry at the end, inheriting the date of the current
// last entry so same-day runs stay together. Refused while another blank
// panel exists.
func (s *Store) Append() (int, error) {
	if i := s.blankIndex(); i >= 0 {
		return 0, ErrBlankEntryExists
	}
	e := NewEntry()
	if n := len(s.panels); n > 0 {
		e.Date = s.panels[n-1].entry.Date
	}
	s.panels = append(s.panels, s.newPanel(e))
	return len(s.panels) - 1, nil
}

// InsertAfter inserts a blank entry immediately after index i. Its date is
// dateOverride when given, otherwise the date of the entry at i.
func (s *Store) InsertAfter(i int, dateOverride string) (int, error) {
	if i < 0 || i >= len(s.panels) {
		return 0, ErrIndexOutOfRange
	}
	if j := s.blankIndex(); j >= 0 {
		return 0, ErrBlankEntryExists
	}
	e := NewEntry()
	if dateOverride != "" {
		e.Date = dateOverride
	} else {
		e.Date = s.panels[i].entry.Date
	}
	p := s.newPanel(e)
	s.panels = append(s.panels, panel{})
	copy(s.panels[i+2:], s.panels[i+1:])
	s.panels[i+1] = p
	return i + 1, nil
}

// Patch carries a partial entry update; nil fields are left untouched.
type Patch struct {
	Date             *string             `json:"date,omitempty"`
	Time             *string             `json:"time,omitempty"`
	Location         *string             `json:"location,omitempty"`
	Memo             *string             `json:"memo,omitempty"`
	Icon             *string             `json:"icon,omitempty"`
	Cost             *string             `json:"cost,omitempty"`
	Currency         *string             `json:"currency,omitempty"`
	Coordinates      *models.Coordinates `json:"coordinates,omitempty"`
	ClearCoordinates bool                `json:"clearCoordinates,omitempty"`
}

// Update merges the patch into the entry at i. Setting a date cascades it
// forward: every following entry whose date is empty or earlier is advanced
// to match, stopping at the first entry already on or past the new date.
func (s *Store) Update(i int, p Patch) error {
	return s.update(i, p, true)
}

// UpdateWithoutCascade applies a patch with no forward date propagation. Used
// when a travel suggestion sets date and time together from a computed
// arrival, where the target date must not be re-derived.
func (s *Store) UpdateWithoutCascade(i int, p Patch) error {
	return s.update(i, p, false)
}

func (s *Store) update(i int, p Patch, cascade bool) error {
	if i < 0 || i >= len(s.panels) {
		return ErrIndexOutOfRange
	}

	e := &s.panels[i].entry
	dateChanged := false
	if p.Date != nil && *p.Date != e.Date {
		e.Date = *p.Date
		dateChanged = true
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Memo != nil {
		e.Memo = *p.Memo
	}
	if p.Icon != nil {
		e.Icon = *p.Icon
	}
	if p.Cost != nil {
		e.Cost = *p.Cost
	}
	if p.Currency != nil {
		e.Currency = *p.Currency
	}
	if p.Coordinates != nil {
		c := *p.Coordinates
		e.Coordinates = &c
	} else if p.ClearCoordinates {
		e.Coordinates = nil
	}
	s.panels[i].rev++

	if cascade && dateChanged && e.Date != "" {
		s.cascadeFrom(i, e.Date)
	}

	s.prune()
	return nil
}

// cascadeFrom advances the dates of entries after i. ISO dates compare
// lexicographically, so string comparison is chronological comparison.
func (s *Store) cascadeFrom(i int, date string) {
	for j := i + 1; j < len(s.panels); j++ {
		d := s.panels[j].entry.Date
		if d != "" && d >= date {
			break
		}
		s.panels[j].entry.Date = date
		s.panels[j].rev++
	}
}

// Delete removes the entry at i. Deleting the only remaining entry resets it
// to defaults instead of leaving an empty sequence. Confirmation for modified
// entries is the caller's concern.
func (s *Store) Delete(i int) error {
	if i < 0 || i >= len(s.panels) {
		return ErrIndexOutOfRange
	}
	if len(s.panels) == 1 {
		// fresh key so stale selections and revisions cannot attach to it
		s.panels[0] = s.newPanel(NewEntry())
		return nil
	}
	s.panels = append(s.panels[:i], s.panels[i+1:]...)
	s.prune()
	return nil
}

func (s *Store) blankIndex() int {
	for i, p := range s.panels {
		if !IsModified(p.entry) {
			return i
		}
	}
	return -1
}

// prune enforces the single-blank invariant after the fact: when more than
// one unmodified entry exists, only the most recently added one survives.
func (s *Store) prune() {
	var newest uint64
	blanks := 0
	for _, p := range s.panels {
		if !IsModified(p.entry) {
			blanks++
			if p.key > newest {
				newest = p.key
			}
		}
	}
	if blanks <= 1 {
		return
	}
	kept := s.panels[:0]
	for _, p := range s.panels {
		if IsModified(p.entry) || p.key == newest {
			kept = append(kept, p)
		}
	}
	s.panels = kept
}

// MinDateFor returns the earliest date selectable for panel i: the nearest
// non-empty date among the panels before it, or "" when there is none.
func (s *Store) MinDateFor(i int) string {
	if i > len(s.panels) {
		i = len(s.panels)
	}
	for j := i - 1; j >= 0; j-- {
		if d := s.panels[j].entry.Date; d != "" {
			return d
		}
	}
	return ""
}

// UniqueDates returns the sorted, de-duplicated non-empty dates in the draft.
func (s *Store) UniqueDates() []string {
	seen := make(map[string]bool)
	dates := []string{}
	for _, p := range s.panels {
		d := p.entry.Date
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// FilteredByDate returns the entries on the given date, in sequence order.
// An empty date selects the undated entries.
func (s *Store) FilteredByDate(date string) []models.Entry {
	out := []models.Entry{}
	for _, p := range s.panels {
		if p.entry.Date == date {
			out = append(out, p.entry)
		}
	}
	return out
}

// DayGroup is one preview section: a date (empty for unscheduled stops) and
// its entries in sequence order.
type DayGroup struct {
	Date    string         `json:"date"`
	Entries []models.Entry `json:"entries"`
}

// GroupedByDate buckets the entries per date, dates ascending, with the
// unscheduled bucket last.
func (s *Store) GroupedByDate() []DayGroup {
	groups := []DayGroup{}
	for _, d := range s.UniqueDates() {
		groups = append(groups, DayGroup{Date: d, Entries: s.FilteredByDate(d)})
	}
	if undated := s.FilteredByDate(""); len(undated) > 0 {
		groups = append(groups, DayGroup{Entries: undated})
	}
	return groups
}

// DateRange returns the earliest and latest non-empty dates, or "" when the
// draft has no dated stop.
func (s *Store) DateRange() (string, string) {
	dates := s.UniqueDates()
	if len(dates) == 0 {
		return "", ""
	}
	return dates[0], dates[len(dates)-1]
}

// CostTotals sums entry costs per currency for the preview summary.
func (s *Store) CostTotals() map[string]float64 {
	totals := make(map[string]float64)
	for _, p := range s.panels {
		cost := strings.TrimSpace(p.entry.Cost)
		if cost == "" {
			continue
		}
		amount, err := strconv.ParseFloat(cost, 64)
		if err != nil || amount <= 0 {
			continue
		}
		currency := p.entry.Currency
		if currency == "" {
			currency = DefaultCurrency
		}
		totals[currency] += amount
	}
	return totals
}
