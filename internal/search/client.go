package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"atmfinder/internal/logging"
	"atmfinder/internal/model"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_search_requests_total",
		Help: "ATM search requests by outcome",
	}, []string{"status"})

	searchRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atm_search_request_duration_seconds",
		Help:    "ATM search request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// Searcher returns one page of ATM locations for a query.
type Searcher interface {
	SearchAtms(ctx context.Context, q model.SearchQuery) (model.Page, error)
}

// Client wraps the ATM locator backend's /atms endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new locator API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.NewLogger("search"),
	}
}

// Validate checks a query the same way the backend checks its parameters.
func Validate(q model.SearchQuery) error {
	switch {
	case q.PageLength <= 0:
		return fmt.Errorf("%w: page length must be positive, got %d", ErrInvalidQuery, q.PageLength)
	case q.PageOffset < 0:
		return fmt.Errorf("%w: page offset must not be negative, got %d", ErrInvalidQuery, q.PageOffset)
	case q.Origin.Latitude < -90 || q.Origin.Latitude > 90:
		return fmt.Errorf("%w: latitude out of range: %v", ErrInvalidQuery, q.Origin.Latitude)
	case q.Origin.Longitude < -180 || q.Origin.Longitude > 180:
		return fmt.Errorf("%w: longitude out of range: %v", ErrInvalidQuery, q.Origin.Longitude)
	case q.Unit != model.UnitKilometer && q.Unit != model.UnitMile:
		return fmt.Errorf("%w: unsupported distance unit %q", ErrInvalidQuery, q.Unit)
	case strings.TrimSpace(q.PostalCode) == "":
		return fmt.Errorf("%w: postal code is required", ErrInvalidQuery)
	case strings.TrimSpace(q.Country) == "":
		return fmt.Errorf("%w: country is required", ErrInvalidQuery)
	}
	return nil
}

// SearchAtms fetches one page of ATMs near the query origin.
func (c *Client) SearchAtms(ctx context.Context, q model.SearchQuery) (model.Page, error) {
	if err := Validate(q); err != nil {
		return model.Page{}, err
	}

	params := url.Values{}
	params.Set("pageOffset", strconv.Itoa(q.PageOffset))
	params.Set("pageLength", strconv.Itoa(q.PageLength))
	params.Set("latitude", strconv.FormatFloat(q.Origin.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Origin.Longitude, 'f', -1, 64))
	params.Set("distanceUnit", string(q.Unit))
	params.Set("postalCode", q.PostalCode)
	params.Set("country", q.Country)

	reqURL := fmt.Sprintf("%s/atms?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.Page{}, fmt.Errorf("request creation failed: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	searchRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		searchRequestsTotal.WithLabelValues("network_error").Inc()
		return model.Page{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		searchRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return model.Page{}, decodeAPIError(resp)
	}

	var result atmsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		searchRequestsTotal.WithLabelValues("decode_error").Inc()
		return model.Page{}, fmt.Errorf("JSON decode error: %w", err)
	}
	searchRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	page := model.Page{
		PageOffset: result.PageOffset,
		TotalCount: result.TotalCount,
		Atms:       make([]model.AtmRecord, 0, len(result.Atm)),
	}
	for _, a := range result.Atm {
		page.Atms = append(page.Atms, a.toRecord())
	}

	c.logger.Debug().
		Int("page_offset", q.PageOffset).
		Int("page_length", q.PageLength).
		Int("total_count", page.TotalCount).
		Int("records", len(page.Atms)).
		Dur("duration", time.Since(start)).
		Msg("search page fetched")

	return page, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}
	var doc errorDocument
	if err := json.Unmarshal(body, &doc); err == nil && len(doc.Error) > 0 {
		apiErr.Source = doc.Error[0].Source
		apiErr.Reason = doc.Error[0].Reason
	}
	return apiErr
}

// API response types

type atmsResponse struct {
	PageOffset int          `json:"pageOffset"`
	TotalCount int          `json:"totalCount"`
	Atm        []atmPayload `json:"atm"`
}

type atmPayload struct {
	Location                     locationPayload `json:"location"`
	HandicapAccessible           bool            `json:"handicapAccessible"`
	Camera                       bool            `json:"camera"`
	Availability                 string          `json:"availability"`
	AccessFees                   string          `json:"accessFees"`
	SharedDeposit                bool            `json:"sharedDeposit"`
	SurchargeFreeAlliance        bool            `json:"surchargeFreeAlliance"`
	SupportEmv                   bool            `json:"supportEmv"`
	InternationalMaestroAccepted bool            `json:"internationalMaestroAccepted"`
}

type locationPayload struct {
	Name         string         `json:"name"`
	Distance     *float64       `json:"distance"`
	DistanceUnit string         `json:"distanceUnit"`
	Address      addressPayload `json:"address"`
	Point        pointPayload   `json:"point"`
}

type addressPayload struct {
	Line1              string    `json:"line1"`
	Line2              string    `json:"line2"`
	City               string    `json:"city"`
	PostalCode         string    `json:"postalCode"`
	CountrySubdivision namedCode `json:"countrySubdivision"`
	Country            namedCode `json:"country"`
}

type namedCode struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type pointPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (a atmPayload) toRecord() model.AtmRecord {
	r := model.AtmRecord{
		ID:           uuid.NewString(),
		Name:         a.Location.Name,
		DistanceUnit: strings.ToLower(a.Location.DistanceUnit),
		Address: model.Address{
			Line1:           a.Location.Address.Line1,
			Line2:           a.Location.Address.Line2,
			City:            a.Location.Address.City,
			SubdivisionCode: a.Location.Address.CountrySubdivision.Code,
			SubdivisionName: a.Location.Address.CountrySubdivision.Name,
			PostalCode:      a.Location.Address.PostalCode,
			CountryCode:     a.Location.Address.Country.Code,
			CountryName:     a.Location.Address.Country.Name,
		},
		Point: model.Location{
			Latitude:  a.Location.Point.Latitude,
			Longitude: a.Location.Point.Longitude,
		},
		Services: model.ServiceFlags{
			HandicapAccessible:           a.HandicapAccessible,
			Camera:                       a.Camera,
			SharedDeposit:                a.SharedDeposit,
			SurchargeFreeAlliance:        a.SurchargeFreeAlliance,
			SupportEMV:                   a.SupportEmv,
			InternationalMaestroAccepted: a.InternationalMaestroAccepted,
		},
		Availability: a.Availability,
		AccessFees:   a.AccessFees,
	}
	if a.Location.Distance != nil {
		r.Distance = math.Round(*a.Location.Distance*100) / 100
	}
	return r
}
