// Package planner coordinates four specialized workers (attraction search,
// weather lookup, lodging recommendation, itinerary synthesis) to turn one
// trip request into one composite trip plan. Workers run concurrently,
// retry independently, and degrade to configured fallbacks instead of
// failing the run.
package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/jsonx"
)

const dateLayout = "2006-01-02"

// TripRequest is the caller-supplied intent. It is immutable once
// dispatched; the orchestrator owns it for the duration of one run.
type TripRequest struct {
	City           string   `json:"city"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	TravelDays     int      `json:"travel_days"`
	Transportation string   `json:"transportation"`
	Accommodation  string   `json:"accommodation"`
	Preferences    []string `json:"preferences"`
	FreeTextInput  string   `json:"free_text_input,omitempty"`
}

// Validate is the run precondition check: the only failure the
// orchestrator reports as an error instead of degrading.
func (r *TripRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("request is nil: %w", core.ErrInvalidTripRequest)
	}
	if strings.TrimSpace(r.City) == "" {
		return fmt.Errorf("city is required: %w", core.ErrInvalidTripRequest)
	}
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("start_date %q is not YYYY-MM-DD: %w", r.StartDate, core.ErrInvalidTripRequest)
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return fmt.Errorf("end_date %q is not YYYY-MM-DD: %w", r.EndDate, core.ErrInvalidTripRequest)
	}
	if end.Before(start) {
		return fmt.Errorf("end_date precedes start_date: %w", core.ErrInvalidTripRequest)
	}
	span := int(end.Sub(start).Hours()/24) + 1
	if r.TravelDays == 0 {
		r.TravelDays = span
	}
	if r.TravelDays < 1 || r.TravelDays > 30 {
		return fmt.Errorf("travel_days %d out of range: %w", r.TravelDays, core.ErrInvalidTripRequest)
	}
	return nil
}

// CacheKey derives a stable cache key from the request content
func (r *TripRequest) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s|%s|%s",
		r.City, r.StartDate, r.EndDate, r.TravelDays,
		r.Transportation, r.Accommodation,
		strings.Join(r.Preferences, ","), r.FreeTextInput)
	return "plan:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Location is a WGS-84 coordinate pair
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Attraction is one sight in a day plan
type Attraction struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Location      Location `json:"location"`
	VisitDuration int      `json:"visit_duration"` // minutes
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	TicketPrice   float64  `json:"ticket_price,omitempty"`
}

// Meal is one of the three daily meals
type Meal struct {
	Type          string  `json:"type"` // breakfast, lunch, dinner
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
}

// Hotel is the recommended stay for one day
type Hotel struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Location      Location `json:"location"`
	PriceRange    string   `json:"price_range,omitempty"`
	Rating        string   `json:"rating,omitempty"`
	Distance      string   `json:"distance,omitempty"`
	Type          string   `json:"type,omitempty"`
	EstimatedCost float64  `json:"estimated_cost,omitempty"`
}

// DayPlan is the itinerary for one day
type DayPlan struct {
	Date           string       `json:"date"`
	DayIndex       int          `json:"day_index"`
	Description    string       `json:"description"`
	Transportation string       `json:"transportation"`
	Accommodation  string       `json:"accommodation"`
	Hotel          *Hotel       `json:"hotel,omitempty"`
	Attractions    []Attraction `json:"attractions"`
	Meals          []Meal       `json:"meals"`
}

// WeatherDay is the forecast for one day
type WeatherDay struct {
	Date          string `json:"date"`
	DayWeather    string `json:"day_weather"`
	NightWeather  string `json:"night_weather"`
	DayTemp       int    `json:"day_temp"`
	NightTemp     int    `json:"night_temp"`
	WindDirection string `json:"wind_direction,omitempty"`
	WindPower     string `json:"wind_power,omitempty"`
}

// Budget is the cost summary across the trip
type Budget struct {
	TotalAttractions    float64 `json:"total_attractions"`
	TotalHotels         float64 `json:"total_hotels"`
	TotalMeals          float64 `json:"total_meals"`
	TotalTransportation float64 `json:"total_transportation"`
	Total               float64 `json:"total"`
}

// TripPlan is the synthesized itinerary
type TripPlan struct {
	City               string       `json:"city"`
	StartDate          string       `json:"start_date"`
	EndDate            string       `json:"end_date"`
	Days               []DayPlan    `json:"days"`
	WeatherInfo        []WeatherDay `json:"weather_info"`
	OverallSuggestions string       `json:"overall_suggestions"`
	Budget             *Budget      `json:"budget,omitempty"`
}

// Slot is one worker's settled contribution to the composite result.
// A slot is always populated: either with the worker's real output or
// with its configured fallback, never left empty.
type Slot struct {
	Worker         core.WorkerName  `json:"worker"`
	Content        string           `json:"content"`
	Fallback       bool             `json:"fallback"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
	Attempts       int              `json:"attempts"`
	Provenance     jsonx.Provenance `json:"provenance,omitempty"`
}

// Result is the composite output of one orchestration run: exactly one
// slot per configured worker plus the assembled plan. Degraded reports
// whether any slot fell back; per-slot reasons are preserved.
type Result struct {
	CorrelationID string                   `json:"correlation_id"`
	Plan          *TripPlan                `json:"plan"`
	Slots         map[core.WorkerName]Slot `json:"slots"`
	Degraded      bool                     `json:"degraded"`
	Elapsed       time.Duration            `json:"elapsed"`
}
