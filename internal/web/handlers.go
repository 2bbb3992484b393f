package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"timegrid/internal/config"
	"timegrid/internal/layout"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
	"timegrid/internal/week"
)

const maxBodyBytes = 1 << 20

// eventDTO is the wire form of model.Event accepted by the API.
type eventDTO struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Color    string    `json:"color"`
	Category string    `json:"category"`
	Location string    `json:"location"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start" validate:"required"`
	End      time.Time `json:"end" validate:"required"`
}

func (d eventDTO) toModel() model.Event {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	return model.Event{
		ID:       id,
		Title:    d.Title,
		Color:    d.Color,
		Category: d.Category,
		Location: d.Location,
		AllDay:   d.AllDay,
		Start:    d.Start,
		End:      d.End,
	}
}

type layoutRequest struct {
	StartHour  *int       `json:"start_hour" validate:"omitempty,min=0,max=23"`
	ColumnMode string     `json:"column_mode" validate:"omitempty,oneof=capped uncapped"`
	Events     []eventDTO `json:"events" validate:"dive"`
}

type layoutResponse struct {
	StartHour  int           `json:"start_hour"`
	ColumnMode string        `json:"column_mode"`
	Boxes      []model.Box   `json:"boxes"`
	AllDay     []model.Event `json:"all_day"`
}

type dayIndexRequest struct {
	DeltaX           float64 `json:"delta_x"`
	OriginalDayIndex *int    `json:"original_day_index" validate:"required,min=0,max=6"`
	DayWidth         float64 `json:"day_width" validate:"gt=0"`
}

type resizeRequest struct {
	Event     eventDTO `json:"event" validate:"required"`
	NewY      *float64 `json:"new_y" validate:"required"`
	Handle    string   `json:"handle" validate:"required,oneof=top bottom start end"`
	StartHour *int     `json:"start_hour" validate:"omitempty,min=0,max=23"`
}

type moveRequest struct {
	Event     eventDTO `json:"event" validate:"required"`
	NewTopY   *float64 `json:"new_top_y" validate:"required"`
	DayDelta  int      `json:"day_delta" validate:"min=-6,max=6"`
	StartHour *int     `json:"start_hour" validate:"omitempty,min=0,max=23"`
}

type createRequest struct {
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	Y1        *float64 `json:"y1" validate:"required"`
	Y2        *float64 `json:"y2" validate:"required"`
	StartHour *int     `json:"start_hour" validate:"omitempty,min=0,max=23"`
}

type snapRequest struct {
	Hour      *float64 `json:"hour" validate:"required"`
	Tolerance *float64 `json:"tolerance" validate:"omitempty,gte=0"`
}

type rangeResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// decode reads a JSON body into dst and validates it. On failure it has
// already written a 400 response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) startHour(h *int) int {
	if h == nil {
		return s.cfg.StartHour
	}
	return *h
}

// handleLayout lays out one day's events supplied by the caller. All-day
// events are split off and echoed back untouched.
//
// POST /api/layout {"start_hour": 8, "column_mode": "capped", "events": [...]}
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if !s.decode(w, r, &req) {
		return
	}

	engine := s.engine.WithStartHour(s.startHour(req.StartHour))
	if req.ColumnMode != "" {
		opts := engine.Options()
		opts.Columns = layout.ColumnMode(req.ColumnMode)
		engine = layout.NewEngine(opts)
	}

	timed := make([]model.Event, 0, len(req.Events))
	allDay := make([]model.Event, 0)
	for _, d := range req.Events {
		ev := d.toModel()
		if ev.AllDay {
			allDay = append(allDay, ev)
			continue
		}
		timed = append(timed, ev)
	}

	boxes, err := engine.Layout(timed)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, layoutResponse{
		StartHour:  engine.Options().StartHour,
		ColumnMode: string(engine.Options().Columns),
		Boxes:      boxes,
		AllDay:     allDay,
	})
}

// handleWeek returns the laid-out week containing ?date (default: today in
// the configured timezone) from the feed-backed event source.
//
// GET /api/week?date=2026-10-12&start_hour=8
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ref := s.clock.Now().In(s.loc)
	if d := q.Get("date"); d != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, d, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	startHour, err := parseIntDefault(q.Get("start_hour"), s.cfg.StartHour)
	if err != nil || startHour < 0 || startHour > 23 {
		writeError(w, http.StatusBadRequest, "start_hour must be within 0..23")
		return
	}

	weekStart := week.StartOfWeek(ref, s.weekDay)
	var events []model.Event
	if s.events != nil {
		events = s.events.Events(weekStart, weekStart.AddDate(0, 0, layout.DaysPerWeek))
	}

	view, err := week.Build(weekStart, events, s.engine.WithStartHour(startHour))
	if err != nil {
		if errors.Is(err, layout.ErrInvertedInterval) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		appLog.Error("api week: build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build week view")
		return
	}

	appLog.Debug("api week request", "week_start", weekStart.Format(time.DateOnly), "events", len(events), "start_hour", startHour)
	writeJSON(w, http.StatusOK, view)
}

// POST /api/drag/day-index {"delta_x": 240, "original_day_index": 1, "day_width": 120}
func (s *Server) handleDayIndex(w http.ResponseWriter, r *http.Request) {
	var req dayIndexRequest
	if !s.decode(w, r, &req) {
		return
	}
	idx := layout.CalculateDayIndex(req.DeltaX, *req.OriginalDayIndex, req.DayWidth)
	writeJSON(w, http.StatusOK, map[string]int{"day_index": idx})
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	handle, err := layout.ParseResizeHandle(req.Handle)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end := layout.Resize(req.Event.toModel(), *req.NewY, handle, s.startHour(req.StartHour))
	writeJSON(w, http.StatusOK, rangeResponse{Start: start, End: end})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, end := layout.Move(req.Event.toModel(), *req.NewTopY, req.DayDelta, s.startHour(req.StartHour))
	writeJSON(w, http.StatusOK, rangeResponse{Start: start, End: end})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decode(w, r, &req) {
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, req.Date, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	start, end := layout.CreateRange(day, *req.Y1, *req.Y2, s.startHour(req.StartHour))
	writeJSON(w, http.StatusOK, rangeResponse{Start: start, End: end})
}

// handleSnap exposes both snapping tiers for a pointer position in hours.
func (s *Server) handleSnap(w http.ResponseWriter, r *http.Request) {
	var req snapRequest
	if !s.decode(w, r, &req) {
		return
	}
	tol := s.cfg.SnapTolerance
	if req.Tolerance != nil {
		tol = *req.Tolerance
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"rounded": layout.RoundToQuarterHour(*req.Hour),
		"snapped": layout.SnapToNearestSlot(*req.Hour, tol),
	})
}

func weekStartOf(cfg *config.Config) time.Weekday {
	d, err := week.ParseWeekday(cfg.WeekStart)
	if err != nil {
		appLog.Warn("unsupported week_start, using monday", "week_start", cfg.WeekStart)
	}
	return d
}
