package editor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/ukaku-studio/bokutabi/draft"
	"github.com/ukaku-studio/bokutabi/geocode"
	"github.com/ukaku-studio/bokutabi/live"
	"github.com/ukaku-studio/bokutabi/models"
	"github.com/ukaku-studio/bokutabi/preview"
	"github.com/ukaku-studio/bokutabi/travel"
	"github.com/ukaku-studio/bokutabi/utils"
)

// Handlers wires the editor HTTP surface to its collaborators.
type Handlers struct {
	Sessions *Manager
	Bridge   *preview.Bridge
	Geo      *geocode.Client
	Hub      *live.Hub
}

func NewHandlers(bridge *preview.Bridge, geo *geocode.Client, hub *live.Hub) *Handlers {
	return &Handlers{
		Sessions: NewManager(),
		Bridge:   bridge,
		Geo:      geo,
		Hub:      hub,
	}
}

func (h *Handlers) notify(sessionID, action string, index int) {
	if h.Hub != nil {
		h.Hub.Notify(sessionID, action, index)
	}
}

// draftState is the editor's view of a session, returned by most handlers.
func draftState(s *Session) utils.M {
	return utils.M{
		"id":      s.ID,
		"title":   s.store.Title(),
		"entries": s.store.Entries(),
	}
}

func (h *Handlers) session(w http.ResponseWriter, ps httprouter.Params) (*Session, bool) {
	s, ok := h.Sessions.Get(ps.ByName("id"))
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Editor session not found")
	}
	return s, ok
}

func entryIndex(w http.ResponseWriter, ps httprouter.Params) (int, bool) {
	i, err := strconv.Atoi(ps.ByName("index"))
	if err != nil || i < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid entry index")
		return 0, false
	}
	return i, true
}

// POST /api/editor
func (h *Handlers) OpenSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := h.Sessions.Open()

	// a snapshot left by a previous visit can be resumed explicitly
	resumable := h.Bridge.Restore(r.Context()) != nil

	s.mu.Lock()
	state := draftState(s)
	s.mu.Unlock()
	state["resumable"] = resumable

	utils.RespondWithJSON(w, http.StatusCreated, state)
}

// GET /api/editor/:id
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	utils.RespondWithJSON(w, http.StatusOK, draftState(s))
}

// PUT /api/editor/:id/title
func (h *Handlers) SetTitle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	s.mu.Lock()
	s.store.SetTitle(body.Title)
	state := draftState(s)
	s.mu.Unlock()

	h.notify(s.ID, "title", -1)
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// POST /api/editor/:id/entries
func (h *Handlers) AppendEntry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}

	s.mu.Lock()
	index, err := s.store.Append()
	var state utils.M
	if err == nil {
		state = draftState(s)
	}
	s.mu.Unlock()

	if err != nil {
		// not a fault: surfaced as a transient warning in the editor
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"warning": err.Error()})
		return
	}

	h.notify(s.ID, "entry", index)
	state["index"] = index
	utils.RespondWithJSON(w, http.StatusCreated, state)
}

// POST /api/editor/:id/entries/:index/insert
func (h *Handlers) InsertEntry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}

	var body struct {
		Date string `json:"date"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	s.mu.Lock()
	index, err := s.store.InsertAfter(i, body.Date)
	var state utils.M
	if err == nil {
		state = draftState(s)
	}
	s.mu.Unlock()

	switch {
	case errors.Is(err, draft.ErrBlankEntryExists):
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"warning": err.Error()})
		return
	case errors.Is(err, draft.ErrIndexOutOfRange):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.notify(s.ID, "entry", index)
	state["index"] = index
	utils.RespondWithJSON(w, http.StatusCreated, state)
}

// PUT /api/editor/:id/entries/:index
func (h *Handlers) UpdateEntry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}

	var patch draft.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if patch.Icon != nil && !draft.ValidIcon(*patch.Icon) {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown icon")
		return
	}

	s.mu.Lock()
	if patch.Date != nil && *patch.Date != "" {
		if min := s.store.MinDateFor(i); min != "" && *patch.Date < min {
			s.mu.Unlock()
			utils.RespondWithError(w, http.StatusBadRequest, "Date is earlier than a preceding stop")
			return
		}
	}

	key, _ := s.store.KeyAt(i)
	err := s.store.Update(i, patch)
	if err == nil {
		if patch.Time != nil {
			s.clearSelection(key)
		}
		s.gcSelections()
	}
	var state utils.M
	if err == nil {
		state = draftState(s)
	}
	s.mu.Unlock()

	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.notify(s.ID, "entry", i)
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// DELETE /api/editor/:id/entries/:index
func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "1"

	s.mu.Lock()
	entry, exists := s.store.Entry(i)
	if !exists {
		s.mu.Unlock()
		utils.RespondWithError(w, http.StatusBadRequest, draft.ErrIndexOutOfRange.Error())
		return
	}
	if draft.IsModified(entry) && !confirmed {
		s.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"needsConfirm": true,
			"warning":      "Entry has edits; confirm deletion",
		})
		return
	}

	err := s.store.Delete(i)
	if err == nil {
		s.gcSelections()
	}
	var state utils.M
	if err == nil {
		state = draftState(s)
	}
	s.mu.Unlock()

	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.notify(s.ID, "entry", i)
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// GET /api/editor/:id/dates
func (h *Handlers) GetDates(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	s.mu.Lock()
	dates := s.store.UniqueDates()
	s.mu.Unlock()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"dates": dates})
}

// GET /api/editor/:id/entries?date=2024-03-20
// Without a date parameter every entry is returned; date= selects the
// unscheduled ones.
func (h *Handlers) GetEntries(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}

	query := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !query.Has("date") {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"entries": s.store.Entries()})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"entries": s.store.FilteredByDate(query.Get("date"))})
}

// GET /api/editor/:id/grouped
func (h *Handlers) GetGrouped(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"title":      s.store.Title(),
		"days":       s.store.GroupedByDate(),
		"costTotals": s.store.CostTotals(),
	})
}

// GET /api/editor/:id/entries/:index/mindate
func (h *Handlers) GetMinDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"minDate": s.store.MinDateFor(i)})
}

// GET /api/editor/:id/entries/:index/suggest
func (h *Handlers) SuggestTravel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.store.Entry(i)
	if !exists || i == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No preceding stop to travel from")
		return
	}
	prev, _ := s.store.Entry(i - 1)
	if !travel.CanSuggest(prev, cur) {
		utils.RespondWithError(w, http.StatusPreconditionFailed,
			"Previous stop needs a time and both stops need a location")
		return
	}

	resp := utils.M{"suggestions": travel.Suggest(prev.Location, cur.Location)}
	if key, ok := s.store.KeyAt(i); ok {
		if sel, applied := s.selections[key]; applied {
			resp["selected"] = sel
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/editor/:id/entries/:index/apply
func (h *Handlers) ApplySuggestion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "1"

	var sug travel.Suggestion
	if err := json.NewDecoder(r.Body).Decode(&sug); err != nil || sug.DurationMinutes < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid suggestion payload")
		return
	}

	s.mu.Lock()
	target, exists := s.store.Entry(i)
	if !exists || i == 0 {
		s.mu.Unlock()
		utils.RespondWithError(w, http.StatusBadRequest, "No preceding stop to travel from")
		return
	}
	if target.Time != "" && !confirmed {
		s.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"needsConfirm": true,
			"warning":      "Arrival time already set; confirm overwrite",
		})
		return
	}

	err := travel.Apply(s.store, i-1, i, sug)
	var state utils.M
	if err == nil {
		if key, ok := s.store.KeyAt(i); ok {
			s.selections[key] = sug
		}
		state = draftState(s)
	}
	s.mu.Unlock()

	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.notify(s.ID, "entry", i)
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// POST /api/editor/:id/entries/:index/location
//
// Resolves a location search for one panel. The upstream lookup runs without
// the session lock; the result is applied only if the panel was not edited
// meanwhile, so a slow response can never clobber newer state.
func (h *Handlers) LocateEntry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}
	i, ok := entryIndex(w, ps)
	if !ok {
		return
	}

	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing search query")
		return
	}

	s.mu.Lock()
	key, exists := s.store.KeyAt(i)
	rev, _ := s.store.RevAt(i)
	s.mu.Unlock()
	if !exists {
		utils.RespondWithError(w, http.StatusBadRequest, draft.ErrIndexOutOfRange.Error())
		return
	}

	result, err := h.Geo.GeocodeWithFallback(r.Context(), body.Query, r.Header.Get("Accept-Language"))

	s.mu.Lock()
	idx := s.store.IndexOfKey(key)
	if idx < 0 {
		s.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"discarded": true})
		return
	}
	if cur, _ := s.store.RevAt(idx); cur != rev {
		// panel edited while the lookup was in flight
		s.mu.Unlock()
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"discarded": true})
		return
	}

	patch := draft.Patch{}
	resp := utils.M{}
	if err != nil {
		// degraded: keep the raw query as the display location
		query := body.Query
		patch.Location = &query
		patch.ClearCoordinates = true
		resp["location"] = query
		resp["warning"] = err.Error()
	} else {
		name, address := geocode.SplitDisplayName(result.Address)
		location := result.OfficialName
		if location == "" {
			location = name
		}
		patch.Location = &location
		patch.Coordinates = &models.Coordinates{Lat: result.Lat, Lng: result.Lng}
		resp["location"] = location
		resp["address"] = address
	}

	updateErr := s.store.UpdateWithoutCascade(idx, patch)
	var state utils.M
	if updateErr == nil {
		state = draftState(s)
	}
	s.mu.Unlock()

	if updateErr != nil {
		utils.RespondWithError(w, http.StatusBadRequest, updateErr.Error())
		return
	}

	h.notify(s.ID, "entry", idx)
	for k, v := range resp {
		state[k] = v
	}
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// POST /api/editor/:id/snapshot
func (h *Handlers) SnapshotDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}

	s.mu.Lock()
	err := h.Bridge.Snapshot(r.Context(), s.store)
	s.mu.Unlock()

	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store draft")
		return
	}
	h.notify(s.ID, "snapshot", -1)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

// POST /api/editor/:id/resume
func (h *Handlers) ResumeDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, ok := h.session(w, ps)
	if !ok {
		return
	}

	s.mu.Lock()
	if !s.store.IsPristine() {
		s.mu.Unlock()
		utils.RespondWithError(w, http.StatusConflict, "Draft already has edits")
		return
	}
	snap := h.Bridge.Restore(r.Context())
	if snap == nil {
		s.mu.Unlock()
		utils.RespondWithError(w, http.StatusNotFound, "No draft to resume")
		return
	}
	s.replaceStore(draft.FromSnapshot(snap.Title, snap.Entries))
	state := draftState(s)
	s.mu.Unlock()

	h.notify(s.ID, "entry", -1)
	utils.RespondWithJSON(w, http.StatusOK, state)
}

// DELETE /api/editor/:id/draft, called when the user declines to resume.
func (h *Handlers) DeclineDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, ok := h.session(w, ps); !ok {
		return
	}
	if err := h.Bridge.Clear(r.Context()); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to clear draft")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}
