package draft

import (
	"slices"

	"github.com/ukaku-studio/bokutabi/models"
)

const (
	DefaultIcon     = "📍"
	DefaultCurrency = "JPY"
)

// DefaultIcons are the glyphs offered by the panel emoji picker.
var DefaultIcons = []string{"📍", "🏨", "🍽️", "🎡", "🛍️", "☕", "🚃", "✈️", "⛩️", "🏔️"}

// NewEntry returns a blank stop with every field at its default.
func NewEntry() models.Entry {
	return models.Entry{
		Icon:     DefaultIcon,
		Currency: DefaultCurrency,
	}
}

// IsModified reports whether any field differs from its default. It gates
// delete confirmation and the one-blank-panel rule.
func IsModified(e models.Entry) bool {
	return e.Date != "" ||
		e.Time != "" ||
		e.Location != "" ||
		e.Coordinates != nil ||
		e.Memo != "" ||
		e.Icon != DefaultIcon ||
		e.Cost != "" ||
		(e.Currency != "" && e.Currency != DefaultCurrency)
}

// Normalize fills missing fields with their defaults so rehydrated data never
// leaves a partially-shaped entry in the store.
func Normalize(e models.Entry) models.Entry {
	if e.Icon == "" {
		e.Icon = DefaultIcon
	}
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
	return e
}

// ValidIcon reports whether the glyph belongs to the picker set.
func ValidIcon(icon string) bool {
	return slices.Contains(DefaultIcons, icon)
}
