package editor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"github.com/ukaku-studio/bokutabi/geocode"
	"github.com/ukaku-studio/bokutabi/preview"
)

func newTestHandlers(t *testing.T) (*Handlers, *Session) {
	t.Helper()
	h := NewHandlers(preview.NewBridge(preview.NewMemorySlot()), geocode.NewClient(), nil)
	s := h.Sessions.Open()
	return h, s
}

func params(pairs ...string) httprouter.Params {
	ps := httprouter.Params{}
	for i := 0; i < len(pairs); i += 2 {
		ps = append(ps, httprouter.Param{Key: pairs[i], Value: pairs[i+1]})
	}
	return ps
}

func doJSON(handler httprouter.Handle, method, target, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req, ps)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestOpenSession(t *testing.T) {
	h, _ := newTestHandlers(t)

	w := doJSON(h.OpenSession, http.MethodPost, "/api/editor", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["id"] == "" {
		t.Fatal("expected a session id")
	}
	if body["resumable"] != false {
		t.Fatal("fresh slot should not be resumable")
	}
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("new draft should have one entry, got %d", len(entries))
	}
}

func TestGetDraftUnknownSession(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := doJSON(h.GetDraft, http.MethodGet, "/api/editor/nope", "", params("id", "nope"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestAppendConflictsWhileBlankExists(t *testing.T) {
	h, s := newTestHandlers(t)
	ps := params("id", s.ID)

	w := doJSON(h.AppendEntry, http.MethodPost, "/x", "", ps)
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409 while blank exists, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["warning"] == nil {
		t.Fatal("expected a warning message")
	}
}

func TestUpdateAndAppendFlow(t *testing.T) {
	h, s := newTestHandlers(t)
	ps := params("id", s.ID)

	w := doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-01","location":"Asakusa"}`, params("id", s.ID, "index", "0"))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(h.AppendEntry, http.MethodPost, "/x", "", ps)
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	entries := body["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	second := entries[1].(map[string]any)
	if second["date"] != "2026-09-01" {
		t.Fatalf("appended entry should inherit date, got %v", second["date"])
	}
}

func TestUpdateRejectsEarlierDate(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-03","location":"A"}`, params("id", s.ID, "index", "0"))
	doJSON(h.AppendEntry, http.MethodPost, "/x", "", params("id", s.ID))

	w := doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-01"}`, params("id", s.ID, "index", "1"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("dates before a preceding stop must be rejected, got %d", w.Code)
	}
}

func TestUpdateRejectsUnknownIcon(t *testing.T) {
	h, s := newTestHandlers(t)
	w := doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"icon":"🦖"}`, params("id", s.ID, "index", "0"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for unknown icon, got %d", w.Code)
	}
}

func TestDeleteModifiedEntryNeedsConfirm(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"Shibuya"}`, params("id", s.ID, "index", "0"))

	w := doJSON(h.DeleteEntry, http.MethodDelete, "/x", "", params("id", s.ID, "index", "0"))
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409 without confirm, got %d", w.Code)
	}

	w = doJSON(h.DeleteEntry, http.MethodDelete, "/x?confirm=1", "", params("id", s.ID, "index", "0"))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 with confirm, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSuggestPreconditions(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"Tokyo Tower"}`, params("id", s.ID, "index", "0"))
	doJSON(h.AppendEntry, http.MethodPost, "/x", "", params("id", s.ID))
	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"Sushi Dai"}`, params("id", s.ID, "index", "1"))

	// previous stop has no time yet
	w := doJSON(h.SuggestTravel, http.MethodGet, "/x", "", params("id", s.ID, "index", "1"))
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("want 412, got %d", w.Code)
	}

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"time":"10:00"}`, params("id", s.ID, "index", "0"))

	w = doJSON(h.SuggestTravel, http.MethodGet, "/x", "", params("id", s.ID, "index", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	sugs := body["suggestions"].([]any)
	if len(sugs) != 3 {
		t.Fatalf("want 3 suggestions, got %d", len(sugs))
	}
}

func TestApplySuggestionFlow(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-01","time":"10:00","location":"Tokyo Tower"}`, params("id", s.ID, "index", "0"))
	doJSON(h.AppendEntry, http.MethodPost, "/x", "", params("id", s.ID))
	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"Sushi Dai"}`, params("id", s.ID, "index", "1"))

	w := doJSON(h.ApplySuggestion, http.MethodPost, "/x",
		`{"mode":"transit","durationMinutes":45}`, params("id", s.ID, "index", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	entries := body["entries"].([]any)
	second := entries[1].(map[string]any)
	if second["time"] != "10:45" {
		t.Fatalf("want arrival 10:45, got %v", second["time"])
	}
	if second["date"] != "2026-09-01" {
		t.Fatalf("undated target should adopt base date, got %v", second["date"])
	}

	// re-applying onto the now-set time needs confirmation
	w = doJSON(h.ApplySuggestion, http.MethodPost, "/x",
		`{"mode":"walking","durationMinutes":75}`, params("id", s.ID, "index", "1"))
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409 without confirm, got %d", w.Code)
	}

	w = doJSON(h.ApplySuggestion, http.MethodPost, "/x?confirm=1",
		`{"mode":"walking","durationMinutes":75}`, params("id", s.ID, "index", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 with confirm, got %d: %s", w.Code, w.Body.String())
	}

	// the applied choice is echoed back by suggest
	w = doJSON(h.SuggestTravel, http.MethodGet, "/x", "", params("id", s.ID, "index", "1"))
	body = decodeBody(t, w)
	selected, ok := body["selected"].(map[string]any)
	if !ok {
		t.Fatalf("expected selected suggestion, got %v", body)
	}
	if selected["mode"] != "walking" {
		t.Fatalf("want walking, got %v", selected["mode"])
	}
}

func TestManualTimeEditClearsSelection(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-01","time":"10:00","location":"A"}`, params("id", s.ID, "index", "0"))
	doJSON(h.AppendEntry, http.MethodPost, "/x", "", params("id", s.ID))
	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"B"}`, params("id", s.ID, "index", "1"))
	doJSON(h.ApplySuggestion, http.MethodPost, "/x",
		`{"mode":"transit","durationMinutes":30}`, params("id", s.ID, "index", "1"))

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"time":"12:00"}`, params("id", s.ID, "index", "1"))

	w := doJSON(h.SuggestTravel, http.MethodGet, "/x", "", params("id", s.ID, "index", "1"))
	body := decodeBody(t, w)
	if _, ok := body["selected"]; ok {
		t.Fatal("manual time edit should clear the applied selection")
	}
}

func TestSnapshotAndResume(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"Nara Park","date":"2026-09-10"}`, params("id", s.ID, "index", "0"))
	doJSON(h.SetTitle, http.MethodPut, "/x", `{"title":"Kansai"}`, params("id", s.ID))

	w := doJSON(h.SnapshotDraft, http.MethodPost, "/x", "", params("id", s.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	// a dirty session cannot be overwritten by resume
	w = doJSON(h.ResumeDraft, http.MethodPost, "/x", "", params("id", s.ID))
	if w.Code != http.StatusConflict {
		t.Fatalf("want 409 for non-pristine draft, got %d", w.Code)
	}

	fresh := h.Sessions.Open()
	w = doJSON(h.ResumeDraft, http.MethodPost, "/x", "", params("id", fresh.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["title"] != "Kansai" {
		t.Fatalf("restored title lost, got %v", body["title"])
	}
	entries := body["entries"].([]any)
	first := entries[0].(map[string]any)
	if first["location"] != "Nara Park" {
		t.Fatalf("restored entry lost, got %v", first)
	}
}

func TestResumeWithoutSnapshot(t *testing.T) {
	h, s := newTestHandlers(t)
	w := doJSON(h.ResumeDraft, http.MethodPost, "/x", "", params("id", s.ID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 with empty slot, got %d", w.Code)
	}
}

func TestDeclineDraftClearsSlot(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"location":"Kobe"}`, params("id", s.ID, "index", "0"))
	doJSON(h.SnapshotDraft, http.MethodPost, "/x", "", params("id", s.ID))

	w := doJSON(h.DeclineDraft, http.MethodDelete, "/x", "", params("id", s.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	fresh := h.Sessions.Open()
	w = doJSON(h.ResumeDraft, http.MethodPost, "/x", "", params("id", fresh.ID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("declined draft should be gone, got %d", w.Code)
	}
}

func TestGroupedView(t *testing.T) {
	h, s := newTestHandlers(t)

	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-01","location":"A","cost":"1200"}`, params("id", s.ID, "index", "0"))
	doJSON(h.AppendEntry, http.MethodPost, "/x", "", params("id", s.ID))
	doJSON(h.UpdateEntry, http.MethodPut, "/x",
		`{"date":"2026-09-02","location":"B","cost":"30","currency":"USD"}`, params("id", s.ID, "index", "1"))

	w := doJSON(h.GetGrouped, http.MethodGet, "/x", "", params("id", s.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	days := body["days"].([]any)
	if len(days) != 2 {
		t.Fatalf("want 2 day groups, got %d", len(days))
	}
	totals := body["costTotals"].(map[string]any)
	if totals["JPY"] != float64(1200) || totals["USD"] != float64(30) {
		t.Fatalf("unexpected totals %v", totals)
	}
}
