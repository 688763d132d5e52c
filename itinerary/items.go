package itinerary

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukaku-studio/bokutabi/db"
	"github.com/ukaku-studio/bokutabi/models"
	"github.com/ukaku-studio/bokutabi/utils"
)

// GET /api/itineraries/:id/items
func GetItineraryItems(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.ItemsCollection.Find(ctx,
		bson.M{"itineraryid": itineraryID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching items")
		return
	}
	defer cursor.Close(ctx)

	items := []models.ItineraryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding items")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

// POST /api/itineraries/:id/items
func CreateItineraryItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var item models.ItineraryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if item.Title == "" && item.Location == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Item needs a title or location")
		return
	}

	now := time.Now().Unix()
	item.ItemID = utils.GetUUID()
	item.ItineraryID = itineraryID
	item.CreatedAt = now
	item.UpdatedAt = now

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := db.ItemsCollection.InsertOne(ctx, item); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error inserting item")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, item)
}

// PUT /api/itineraries/:id/items/:itemId
func UpdateItineraryItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")
	itemID := ps.ByName("itemId")

	var item models.ItineraryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"date":                item.Date,
		"time":                item.Time,
		"title":               item.Title,
		"location":            item.Location,
		"address":             item.Address,
		"coordinates":         item.Coordinates,
		"cost":                item.Cost,
		"notes":               item.Notes,
		"order":               item.Order,
		"estimated_duration":  item.EstimatedDuration,
		"travel_time_to_next": item.TravelTimeToNext,
		"travel_mode":         item.TravelMode,
		"updated_at":          time.Now().Unix(),
	}}
	filter := bson.M{"itemid": itemID, "itineraryid": itineraryID}
	result, err := db.ItemsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating item")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Item not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Item updated successfully"})
}

// DELETE /api/itineraries/:id/items/:itemId
func DeleteItineraryItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")
	itemID := ps.ByName("itemId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter := bson.M{"itemid": itemID, "itineraryid": itineraryID}
	result, err := db.ItemsCollection.DeleteOne(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting item")
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Item not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Item deleted successfully"})
}
