package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Result is the top match for a free-text query.
type Result struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Address      string  `json:"address"`
	OfficialName string  `json:"officialName"`
}

var (
	// ErrNotFound means the upstream returned zero candidates.
	ErrNotFound = errors.New("no results found for this location")
	// ErrRequestFailed wraps transport and non-200 failures.
	ErrRequestFailed = errors.New("geocoding request failed")
)

const defaultBaseURL = "https://nominatim.openstreetmap.org/search"

type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
}

func NewClient() *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   defaultBaseURL,
		UserAgent: "bokutabi/1.0",
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	NameDetails struct {
		Name string `json:"name"`
	} `json:"namedetails"`
}

// Geocode resolves a query into coordinates and a display string. Only the
// top candidate is used. An optional language hints the upstream locale.
func (c *Client) Geocode(ctx context.Context, query, language string) (*Result, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("namedetails", "1")
	if language != "" {
		params.Set("accept-language", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	top := results[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrRequestFailed, top.Lat)
	}
	lng, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrRequestFailed, top.Lon)
	}

	official := top.Name
	if official == "" {
		official = top.NameDetails.Name
	}

	return &Result{
		Lat:          lat,
		Lng:          lng,
		Address:      top.DisplayName,
		OfficialName: official,
	}, nil
}

// PreferredLanguage normalizes a UI locale to the supported lookup languages.
func PreferredLanguage(locale string) string {
	if strings.HasPrefix(locale, "en") {
		return "en"
	}
	return "ja"
}

// GeocodeWithFallback tries the preferred language, then the other supported
// one, then an unqualified request. Attempts are strictly sequential so at
// most one request is outstanding; the first success wins and the final
// unqualified attempt's failure is the one surfaced.
func (c *Client) GeocodeWithFallback(ctx context.Context, query, locale string) (*Result, error) {
	preferred := PreferredLanguage(locale)
	fallback := "en"
	if preferred == "en" {
		fallback = "ja"
	}

	var lastErr error
	for _, lang := range []string{preferred, fallback, ""} {
		result, err := c.Geocode(ctx, query, lang)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// SplitDisplayName splits "Name, Rest, Of, Address" at the first comma. A
// single-segment display name has no separate address line.
func SplitDisplayName(displayName string) (string, string) {
	name, address, found := strings.Cut(displayName, ",")
	if !found {
		return strings.TrimSpace(displayName), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(address)
}
