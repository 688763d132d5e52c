package models

// Coordinates is a geocoded lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Entry is one stop of a draft itinerary as edited in the multi-panel editor.
// All fields are strings so an untouched panel serializes to its defaults.
type Entry struct {
	Date        string       `json:"date" bson:"date"`
	Time        string       `json:"time" bson:"time"`
	Location    string       `json:"location" bson:"location"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Memo        string       `json:"memo" bson:"memo"`
	Icon        string       `json:"icon" bson:"icon"`
	Cost        string       `json:"cost" bson:"cost"`
	Currency    string       `json:"currency" bson:"currency"`
}

// DraftSnapshot is the cross-navigation handoff written to the shared draft slot.
type DraftSnapshot struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// SavedItinerary is one record of the append-only home listing.
type SavedItinerary struct {
	ID        string  `json:"id" bson:"id"`
	Title     string  `json:"title" bson:"title"`
	Entries   []Entry `json:"entries" bson:"entries"`
	CreatedAt int64   `json:"createdAt" bson:"created_at"`
}

// Itinerary represents a saved, password-protected trip
type Itinerary struct {
	ItineraryID  string `json:"itineraryid" bson:"itineraryid,omitempty"`
	Title        string `json:"title" bson:"title"`
	StartDate    string `json:"start_date" bson:"start_date"`
	EndDate      string `json:"end_date" bson:"end_date"`
	PasswordHash string `json:"-" bson:"password_hash"`
	CreatedAt    int64  `json:"created_at" bson:"created_at"`
	UpdatedAt    int64  `json:"updated_at" bson:"updated_at"`
	Deleted      bool   `json:"-" bson:"deleted,omitempty"` // Internal use only
}

type Cost struct {
	Amount   float64 `json:"amount" bson:"amount"`
	Currency string  `json:"currency" bson:"currency"`
}

// ItineraryItem is one stop of a saved itinerary.
type ItineraryItem struct {
	ItemID            string       `json:"id" bson:"itemid,omitempty"`
	ItineraryID       string       `json:"itineraryid" bson:"itineraryid"`
	Date              string       `json:"date" bson:"date"`
	Time              string       `json:"time" bson:"time"`
	Title             string       `json:"title" bson:"title"`
	Location          string       `json:"location" bson:"location"`
	Address           string       `json:"address" bson:"address"`
	Coordinates       *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Cost              *Cost        `json:"cost,omitempty" bson:"cost,omitempty"`
	Notes             string       `json:"notes" bson:"notes"`
	Order             int          `json:"order" bson:"order"`
	EstimatedDuration int          `json:"estimatedDuration,omitempty" bson:"estimated_duration,omitempty"`
	TravelTimeToNext  int          `json:"travelTimeToNext,omitempty" bson:"travel_time_to_next,omitempty"`
	TravelMode        string       `json:"travelMode,omitempty" bson:"travel_mode,omitempty"`
	CreatedAt         int64        `json:"created_at" bson:"created_at"`
	UpdatedAt         int64        `json:"updated_at" bson:"updated_at"`
}
