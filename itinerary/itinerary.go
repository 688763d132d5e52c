// Package itinerary serves saved, password-protected trips. Saving from the
// editor creates the records; this package handles viewing and later edits.
package itinerary

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/ukaku-studio/bokutabi/db"
	"github.com/ukaku-studio/bokutabi/middleware"
	"github.com/ukaku-studio/bokutabi/models"
	"github.com/ukaku-studio/bokutabi/rdx"
	"github.com/ukaku-studio/bokutabi/utils"
)

// POST /api/itineraries
func CreateItinerary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Title     string `json:"title"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Password  string `json:"password"`
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

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to secure itinerary")
		return
	}

	now := time.Now().Unix()
	itinerary := models.Itinerary{
		ItineraryID:  utils.GenerateRandomString(13),
		Title:        body.Title,
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := db.ItineraryCollection.InsertOne(ctx, itinerary); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error inserting itinerary")
		return
	}

	token, err := middleware.MintTripToken(itinerary.ItineraryID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"itinerary": itinerary,
		"token":     token,
	})
}

// POST /api/itineraries/:id/auth
//
// Exchanges the trip password for a bearer token scoped to this itinerary.
func AuthenticateItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var itinerary models.Itinerary
	filter := bson.M{"itineraryid": itineraryID, "deleted": bson.M{"$ne": true}}
	if err := db.ItineraryCollection.FindOne(ctx, filter).Decode(&itinerary); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Itinerary not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(itinerary.PasswordHash), []byte(body.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Wrong password")
		return
	}

	token, err := middleware.MintTripToken(itineraryID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	// unlock breadcrumb, best effort
	_ = rdx.RdxSetTTL("unlock:"+itineraryID, strconv.FormatInt(time.Now().Unix(), 10), 24*time.Hour)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"token": token})
}

// GET /api/itineraries/:id
func GetItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var itinerary models.Itinerary
	filter := bson.M{"itineraryid": itineraryID, "deleted": bson.M{"$ne": true}}
	if err := db.ItineraryCollection.FindOne(ctx, filter).Decode(&itinerary); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Itinerary not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, itinerary)
}

// PUT /api/itineraries/:id
func UpdateItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var body struct {
		Title     string `json:"title"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if body.Title == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Title is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"title":      body.Title,
		"start_date": body.StartDate,
		"end_date":   body.EndDate,
		"updated_at": time.Now().Unix(),
	}}
	result, err := db.ItineraryCollection.UpdateOne(ctx, bson.M{"itineraryid": itineraryID}, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating itinerary")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Itinerary not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Itinerary updated successfully"})
}

// DELETE /api/itineraries/:id
func DeleteItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"deleted": true}}
	result, err := db.ItineraryCollection.UpdateOne(ctx, bson.M{"itineraryid": itineraryID}, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting itinerary")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Itinerary not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Itinerary deleted successfully"})
}

// GET /api/itineraries
//
// The home listing: every itinerary ever saved, newest first. Append-only,
// saving never replaces an older record with the same title.
func GetSavedItineraries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	saved, err := utils.FindAndDecode[models.SavedItinerary](ctx, db.SavedCollection, bson.M{})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching itineraries")
		return
	}

	// newest first
	sort.Slice(saved, func(i, j int) bool { return saved[i].CreatedAt > saved[j].CreatedAt })

	utils.RespondWithJSON(w, http.StatusOK, saved)
}
