// Package export renders saved itineraries into shareable artifacts: a QR
// code pointing at the share URL and a printable day-by-day PDF.
package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukaku-studio/bokutabi/db"
	"github.com/ukaku-studio/bokutabi/editor"
	"github.com/ukaku-studio/bokutabi/models"
	"github.com/ukaku-studio/bokutabi/utils"
)

func loadItinerary(ctx context.Context, id string) (*models.Itinerary, error) {
	var itinerary models.Itinerary
	filter := bson.M{"itineraryid": id, "deleted": bson.M{"$ne": true}}
	if err := db.ItineraryCollection.FindOne(ctx, filter).Decode(&itinerary); err != nil {
		return nil, err
	}
	return &itinerary, nil
}

func loadItems(ctx context.Context, id string) ([]models.ItineraryItem, error) {
	cursor, err := db.ItemsCollection.Find(ctx,
		bson.M{"itineraryid": id},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []models.ItineraryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GET /api/itineraries/:id/qr
func ShareQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := loadItinerary(ctx, itineraryID); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Itinerary not found")
		return
	}

	png, err := qrcode.Encode(editor.ShareURL(itineraryID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// GET /api/itineraries/:id/print
func PrintItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	itinerary, err := loadItinerary(ctx, itineraryID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Itinerary not found")
		return
	}
	items, err := loadItems(ctx, itineraryID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching items")
		return
	}

	qrPNG, err := qrcode.Encode(editor.ShareURL(itineraryID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, itinerary.Title)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	if itinerary.StartDate != "" {
		pdf.Cell(0, 8, fmt.Sprintf("%s - %s", itinerary.StartDate, itinerary.EndDate))
		pdf.Ln(10)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("share-qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("share-qr", 160, 10, 35, 35, false, imageOpts, 0, "")

	for _, group := range groupByDate(items) {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 13)
		if group.date == "" {
			pdf.Cell(0, 8, "Unscheduled")
		} else {
			pdf.Cell(0, 8, group.date)
		}
		pdf.Ln(9)

		pdf.SetFont("Arial", "", 11)
		for _, item := range group.items {
			line := item.Location
			if line == "" {
				line = item.Title
			}
			if item.Time != "" {
				line = item.Time + "  " + line
			}
			pdf.Cell(0, 7, line)
			pdf.Ln(6)
			if item.Cost != nil && item.Cost.Amount > 0 {
				pdf.SetFont("Arial", "I", 9)
				pdf.Cell(0, 5, fmt.Sprintf("    %.0f %s", item.Cost.Amount, item.Cost.Currency))
				pdf.SetFont("Arial", "", 11)
				pdf.Ln(5)
			}
			if item.Notes != "" {
				pdf.SetFont("Arial", "I", 9)
				pdf.Cell(0, 5, "    "+item.Notes)
				pdf.SetFont("Arial", "", 11)
				pdf.Ln(5)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=itinerary-"+itineraryID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type dateGroup struct {
	date  string
	items []models.ItineraryItem
}

// groupByDate buckets items per date in their stored order, undated last.
func groupByDate(items []models.ItineraryItem) []dateGroup {
	groups := []dateGroup{}
	index := map[string]int{}
	undated := []models.ItineraryItem{}
	for _, item := range items {
		if item.Date == "" {
			undated = append(undated, item)
			continue
		}
		i, ok := index[item.Date]
		if !ok {
			i = len(groups)
			index[item.Date] = i
			groups = append(groups, dateGroup{date: item.Date})
		}
		groups[i].items = append(groups[i].items, item)
	}
	if len(undated) > 0 {
		groups = append(groups, dateGroup{items: undated})
	}
	return groups
}
