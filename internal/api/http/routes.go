package httpapi

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/weather-ensemble/internal/geocode"
	"github.com/i474232898/weather-ensemble/internal/weather"
	"github.com/i474232898/weather-ensemble/internal/weather/providers"
)

var validate = validator.New()

const (
	defaultRequestTimeout = 8 * time.Second
	labelTimeout          = 1500 * time.Millisecond
	maxLocationRunes      = 200
)

// API holds what the handlers need. Only the service is mandatory.
type API struct {
	service *weather.Service
	reports weather.ReportStore
	labels  geocode.Resolver
	timeout time.Duration
	now     func() time.Time
}

// Option customizes the API.
type Option func(*API)

// WithReports enables report submission against store.
func WithReports(store weather.ReportStore) Option {
	return func(a *API) { a.reports = store }
}

// WithLabels resolves a display label when the caller sends none.
func WithLabels(r geocode.Resolver) Option {
	return func(a *API) { a.labels = r }
}

// WithRequestTimeout bounds a whole ensemble request.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts ...Option) {
	a := &API{
		service: service,
		timeout: defaultRequestTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	v1 := app.Group("/api/v1")
	v1.Get("/weather/sources", a.sources)
	v1.Get("/providers", a.providerList)
	v1.Post("/reports", a.submitReport)
}

// ErrorHandler renders every error as JSON. Server-side failures never expose
// their cause to the caller.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "service temporarily unavailable"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// sourcesQuery holds the raw query parameters of the sources endpoint.
type sourcesQuery struct {
	Lat      string `validate:"required,numeric"`
	Lon      string `validate:"required,numeric"`
	Location string `validate:"max=200"`
	Units    string `validate:"omitempty,oneof=imperial metric"`
}

func (s sourcesQuery) toQuery() (weather.Query, error) {
	lat, err := strconv.ParseFloat(s.Lat, 64)
	if err != nil {
		return weather.Query{}, err
	}
	lon, err := strconv.ParseFloat(s.Lon, 64)
	if err != nil {
		return weather.Query{}, err
	}
	q := weather.Query{Lat: lat, Lon: lon, LocationName: s.Location}
	return q, q.Validate()
}

type sourcesResponse struct {
	Units string `json:"units"`
	weather.Ensemble
}

func (a *API) sources(c *fiber.Ctx) error {
	req := sourcesQuery{
		Lat:      strings.TrimSpace(c.Query("lat")),
		Lon:      strings.TrimSpace(c.Query("lon")),
		Location: strings.TrimSpace(c.Query("location")),
		Units:    strings.ToLower(c.Query("units")),
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q, err := req.toQuery()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), a.timeout)
	defer cancel()

	if q.LocationName == "" && a.labels != nil {
		q.LocationName = a.resolveLabel(ctx, q)
	}

	ens, err := a.service.Ensemble(ctx, q)
	if err != nil {
		if errors.Is(err, weather.ErrInvalidQuery) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	units := unitsImperial
	if req.Units == unitsMetric {
		units = unitsMetric
		ens = metricEnsemble(ens)
	}
	return c.JSON(sourcesResponse{Units: units, Ensemble: ens})
}

func (a *API) resolveLabel(parent context.Context, q weather.Query) string {
	ctx, cancel := context.WithTimeout(parent, labelTimeout)
	defer cancel()

	label, err := a.labels.Label(ctx, q.Lat, q.Lon)
	if err != nil {
		log.Printf("DEBUG: no label for %s: %v", q.Label(), err)
		return ""
	}
	return truncateRunes(label, maxLocationRunes)
}

// truncateRunes cuts s to at most n runes, never inside a multi-byte sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type providerView struct {
	providers.Spec
	Priority int  `json:"priority"`
	Enabled  bool `json:"enabled"`
}

func (a *API) providerList(c *fiber.Ctx) error {
	enabled := make(map[string]bool)
	for _, id := range a.service.AdapterIDs() {
		enabled[id] = true
	}

	views := make([]providerView, 0, len(providers.DefaultRegistry))
	for i, spec := range providers.DefaultRegistry {
		views = append(views, providerView{
			Spec:     spec,
			Priority: i + 1,
			Enabled:  enabled[spec.ID],
		})
	}
	return c.JSON(fiber.Map{"providers": views})
}

// reportRequest is the body of a community report submission.
type reportRequest struct {
	Latitude          *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude         *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	ReportedCondition string   `json:"reportedCondition" validate:"required,max=64"`
	ActualCondition   string   `json:"actualCondition" validate:"omitempty,max=64"`
	Accuracy          string   `json:"accuracy" validate:"omitempty,oneof=very_accurate accurate somewhat_accurate inaccurate"`
}

func (a *API) submitReport(c *fiber.Ctx) error {
	if a.reports == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "community reports are not enabled")
	}

	var req reportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	reported := weather.ParseCondition(req.ReportedCondition)
	if reported == weather.ConditionUnknown {
		return fiber.NewError(fiber.StatusBadRequest, "unrecognized reportedCondition")
	}
	var actual weather.Condition
	if req.ActualCondition != "" {
		if actual = weather.ParseCondition(req.ActualCondition); actual == weather.ConditionUnknown {
			return fiber.NewError(fiber.StatusBadRequest, "unrecognized actualCondition")
		}
	}

	report := weather.CommunityReport{
		ID:                uuid.NewString(),
		Latitude:          *req.Latitude,
		Longitude:         *req.Longitude,
		ReportedCondition: string(reported),
		ActualCondition:   string(actual),
		Accuracy:          weather.AccuracyRating(req.Accuracy),
		Status:            weather.ReportActive,
		CreatedAt:         a.now().UTC(),
	}
	if err := a.reports.SaveReport(c.UserContext(), report); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
