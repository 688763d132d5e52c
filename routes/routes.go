package routes

import (
	"github.com/julienschmidt/httprouter"

	"github.com/ukaku-studio/bokutabi/editor"
	"github.com/ukaku-studio/bokutabi/export"
	"github.com/ukaku-studio/bokutabi/itinerary"
	"github.com/ukaku-studio/bokutabi/live"
	"github.com/ukaku-studio/bokutabi/middleware"
	"github.com/ukaku-studio/bokutabi/ratelim"
)

func AddEditorRoutes(router *httprouter.Router, h *editor.Handlers) {
	router.POST("/api/editor", ratelim.RateLimit(h.OpenSession))
	router.GET("/api/editor/:id", h.GetDraft)
	router.PUT("/api/editor/:id/title", h.SetTitle)

	router.POST("/api/editor/:id/entries", h.AppendEntry)
	router.GET("/api/editor/:id/entries", h.GetEntries)
	router.PUT("/api/editor/:id/entries/:index", h.UpdateEntry)
	router.DELETE("/api/editor/:id/entries/:index", h.DeleteEntry)
	router.POST("/api/editor/:id/entries/:index/insert", h.InsertEntry)

	router.GET("/api/editor/:id/dates", h.GetDates)
	router.GET("/api/editor/:id/grouped", h.GetGrouped)
	router.GET("/api/editor/:id/entries/:index/mindate", h.GetMinDate)

	router.GET("/api/editor/:id/entries/:index/suggest", h.SuggestTravel)
	router.POST("/api/editor/:id/entries/:index/apply", h.ApplySuggestion)
	router.POST("/api/editor/:id/entries/:index/location", ratelim.RateLimit(h.LocateEntry))

	router.POST("/api/editor/:id/snapshot", h.SnapshotDraft)
	router.POST("/api/editor/:id/resume", h.ResumeDraft)
	router.DELETE("/api/editor/:id/draft", h.DeclineDraft)

	router.POST("/api/editor/:id/save", ratelim.RateLimit(h.SaveDraft))
}

func AddItineraryRoutes(router *httprouter.Router) {
	router.GET("/api/itineraries", itinerary.GetSavedItineraries)
	router.POST("/api/itineraries", ratelim.RateLimit(itinerary.CreateItinerary))
	router.POST("/api/itineraries/:id/auth", ratelim.RateLimit(itinerary.AuthenticateItinerary))
	router.GET("/api/itineraries/:id", itinerary.GetItinerary)
	router.PUT("/api/itineraries/:id", middleware.Authenticate(middleware.RequireTrip(itinerary.UpdateItinerary)))
	router.DELETE("/api/itineraries/:id", middleware.Authenticate(middleware.RequireTrip(itinerary.DeleteItinerary)))

	router.GET("/api/itineraries/:id/items", middleware.Authenticate(middleware.RequireTrip(itinerary.GetItineraryItems)))
	router.POST("/api/itineraries/:id/items", middleware.Authenticate(middleware.RequireTrip(itinerary.CreateItineraryItem)))
	router.PUT("/api/itineraries/:id/items/:itemId", middleware.Authenticate(middleware.RequireTrip(itinerary.UpdateItineraryItem)))
	router.DELETE("/api/itineraries/:id/items/:itemId", middleware.Authenticate(middleware.RequireTrip(itinerary.DeleteItineraryItem)))
}

func AddExportRoutes(router *httprouter.Router) {
	router.GET("/api/itineraries/:id/qr", export.ShareQR)
	router.GET("/api/itineraries/:id/print", ratelim.RateLimit(export.PrintItinerary))
}

func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/editor/:id", live.WebSocketHandler(hub))
}
