package editor

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"github.com/ukaku-studio/bokutabi/db"
	"github.com/ukaku-studio/bokutabi/draft"
	"github.com/ukaku-studio/bokutabi/middleware"
	"github.com/ukaku-studio/bokutabi/models"
	"github.com/ukaku-studio/bokutabi/utils"
)

func appOrigin() string {
	if origin := os.Getenv("APP_ORIGIN"); origin != "" {
		return origin
	}
	return "https://bokutabi.app"
}

// ShareURL is the public link unlocking a saved itinerary with its password.
func ShareURL(itineraryID string) string {
	return appOrigin() + "/itinerary/" + itineraryID
}

// POST /api/editor/:id/save
//
// Persists the draft as a password-protected itinerary. Blank panels are
// stripped; the draft itself stays open and the shared slot is left alone so
// the editor can keep working after saving.
func (h *Handlers) SaveDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}

	var body struct {
		Title    string `json:"title"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if body.Title == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if len(body.Password) < 2 {
		utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 2 characters")
		return
	}

	s.mu.Lock()
	s.store.SetTitle(body.Title)
	entries := s.store.Entries()
	start, end := s.store.DateRange()
	s.mu.Unlock()

	stops := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if draft.IsModified(e) {
			stops = append(stops, draft.Normalize(e))
		}
	}
	if len(stops) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to save yet")
		return
	}

	today := time.Now().Format("2006-01-02")
	if start == "" {
		start, end = today, today
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to secure itinerary")
		return
	}

	now := time.Now().Unix()
	itineraryID := utils.GenerateRandomString(13)
	itinerary := models.Itinerary{
		ItineraryID:  itineraryID,
		Title:        body.Title,
		StartDate:    start,
		EndDate:      end,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx := r.Context()
	if _, err := db.ItineraryCollection.InsertOne(ctx, itinerary); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]any, 0, len(stops))
	for i, e := range stops {
		item := models.ItineraryItem{
			ItemID:      utils.GetUUID(),
			ItineraryID: itineraryID,
			Date:        e.Date,
			Time:        e.Time,
			Title:       e.Location,
			Location:    e.Location,
			Coordinates: e.Coordinates,
			Notes:       e.Memo,
			Order:       i,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if amount := utils.ParseFloat(e.Cost); amount > 0 {
			currency := e.Currency
			if currency == "" {
				currency = draft.DefaultCurrency
			}
			item.Cost = &models.Cost{Amount: amount, Currency: currency}
		}
		items = append(items, item)
	}
	if _, err := db.ItemsCollection.InsertMany(ctx, items); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	saved := models.SavedItinerary{
		ID:        itineraryID,
		Title:     body.Title,
		Entries:   stops,
		CreatedAt: now,
	}
	if _, err := db.SavedCollection.InsertOne(ctx, saved); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := middleware.MintTripToken(itineraryID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	h.notify(s.ID, "saved", -1)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"id":       itineraryID,
		"shareUrl": ShareURL(itineraryID),
		"token":    token,
	})
}
