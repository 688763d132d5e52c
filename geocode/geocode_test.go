package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(server *httptest.Server) *Client {
	return &Client{
		HTTP:      server.Client(),
		BaseURL:   server.URL,
		UserAgent: "bokutabi-test",
	}
}

func TestGeocodeParsesTopResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "東京タワー" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("unexpected limit %q", got)
		}
		w.Write([]byte(`[{"lat":"35.6586","lon":"139.7454","display_name":"東京タワー, 芝公園, 港区, 東京都","name":"東京タワー"}]`))
	}))
	defer server.Close()

	result, err := testClient(server).Geocode(context.Background(), "東京タワー", "ja")
	if err != nil {
		t.Fatal(err)
	}
	if result.Lat != 35.6586 || result.Lng != 139.7454 {
		t.Errorf("unexpected coordinates %v/%v", result.Lat, result.Lng)
	}
	if result.OfficialName != "東京タワー" {
		t.Errorf("unexpected official name %q", result.OfficialName)
	}
}

func TestGeocodeFallsBackToNameDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"1","lon":"2","display_name":"X","name":"","namedetails":{"name":"Detail Name"}}]`))
	}))
	defer server.Close()

	result, err := testClient(server).Geocode(context.Background(), "x", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.OfficialName != "Detail Name" {
		t.Errorf("want namedetails fallback, got %q", result.OfficialName)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := testClient(server).Geocode(context.Background(), "nowhere", "en")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGeocodeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server).Geocode(context.Background(), "x", "")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestFallbackSequence(t *testing.T) {
	var languages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("accept-language")
		languages = append(languages, lang)
		if lang != "" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"lat":"1","lon":"2","display_name":"Found","name":"Found"}]`))
	}))
	defer server.Close()

	result, err := testClient(server).GeocodeWithFallback(context.Background(), "x", "ja-JP")
	if err != nil {
		t.Fatal(err)
	}
	if result.OfficialName != "Found" {
		t.Errorf("unexpected result %v", result)
	}

	want := []string{"ja", "en", ""}
	if len(languages) != len(want) {
		t.Fatalf("expected %d attempts, got %v", len(want), languages)
	}
	for i, lang := range want {
		if languages[i] != lang {
			t.Errorf("attempt %d: want language %q, got %q", i, lang, languages[i])
		}
	}
}

func TestFallbackStopsOnFirstSuccess(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`[{"lat":"1","lon":"2","display_name":"Hit","name":"Hit"}]`))
	}))
	defer server.Close()

	if _, err := testClient(server).GeocodeWithFallback(context.Background(), "x", "en-US"); err != nil {
		t.Fatal(err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestFallbackSurfacesLastError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("accept-language") == "" {
			w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server).GeocodeWithFallback(context.Background(), "x", "ja")
	// the unqualified attempt ran last and found nothing
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected final attempt's ErrNotFound, got %v", err)
	}
}

func TestPreferredLanguage(t *testing.T) {
	tests := map[string]string{
		"en":       "en",
		"en-US":    "en",
		"ja":       "ja",
		"ja-JP":    "ja",
		"fr":       "ja",
		"":         "ja",
		"en-GB,en": "en",
	}
	for locale, want := range tests {
		if got := PreferredLanguage(locale); got != want {
			t.Errorf("PreferredLanguage(%q): want %q, got %q", locale, want, got)
		}
	}
}

func TestSplitDisplayName(t *testing.T) {
	tests := []struct {
		in            string
		name, address string
	}{
		{"Tokyo Tower, Shibakoen, Minato, Tokyo", "Tokyo Tower", "Shibakoen, Minato, Tokyo"},
		{"Single Place", "Single Place", ""},
		{"A , B", "A", "B"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, address := SplitDisplayName(tt.in)
		if name != tt.name || address != tt.address {
			t.Errorf("SplitDisplayName(%q): want (%q, %q), got (%q, %q)", tt.in, tt.name, tt.address, name, address)
		}
	}
}
