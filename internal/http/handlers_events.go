package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pnljournal/internal/core"
	"pnljournal/internal/services"
)

type eventJSON struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Type        string  `json:"type"`
	AllDay      bool    `json:"all_day"`
	Color       string  `json:"color"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// eventRequest is the body of create and update calls. Absent fields are nil;
// on update an empty end_date clears it.
type eventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Type        *string `json:"type"`
	AllDay      *bool   `json:"all_day"`
	Color       *string `json:"color"`
}

func toEventJSON(e core.CalendarEvent) eventJSON {
	out := eventJSON{
		ID:          e.ID.String(),
		Title:       e.Title,
		Description: e.Description,
		StartDate:   e.StartDate.Key(),
		Type:        string(e.Type),
		AllDay:      e.AllDay,
		Color:       e.Color,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
	if e.EndDate != nil {
		end := e.EndDate.Key()
		out.EndDate = &end
	}
	return out
}

func toEventsJSON(events []core.CalendarEvent) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEventJSON(e))
	}
	return out
}

func decodeEventRequest(w http.ResponseWriter, r *http.Request) (eventRequest, error) {
	var req eventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(&req)
	return req, err
}

// toPatch converts a request into an update patch, validating dates and type.
func (req eventRequest) toPatch() (services.EventPatch, error) {
	var p services.EventPatch
	if req.Title != nil {
		title := sanitizeInput(*req.Title)
		p.Title = &title
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		p.Description = &desc
	}
	if req.StartDate != nil {
		d, err := core.ParseDateKey(*req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &d
	}
	if req.EndDate != nil {
		if strings.TrimSpace(*req.EndDate) == "" {
			p.ClearEndDate = true
		} else {
			d, err := core.ParseDateKey(*req.EndDate)
			if err != nil {
				return p, err
			}
			p.EndDate = &d
		}
	}
	if req.Type != nil {
		t, err := core.ParseEventType(*req.Type)
		if err != nil {
			return p, err
		}
		p.Type = &t
	}
	p.AllDay = req.AllDay
	if req.Color != nil {
		color := strings.TrimSpace(*req.Color)
		p.Color = &color
	}
	return p, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	user := s.userID(r)

	var (
		events []core.CalendarEvent
		err    error
	)
	if raw := query.Get("date"); raw != "" {
		date, perr := core.ParseDateKey(raw)
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, perr.Error())
			return
		}
		events, err = s.journal.ListEventsByDate(r.Context(), user, date)
	} else {
		ym, perr := ParseMonthParams(query, s.now())
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, perr.Error())
			return
		}
		events, err = s.journal.ListEventsByMonth(r.Context(), user, ym)
	}
	if err != nil {
		writeAPIError(w, r, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventsJSON(events))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEventRequest(w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StartDate == nil {
		writeJSONError(w, http.StatusBadRequest, "start_date is required")
		return
	}
	if req.Type == nil {
		custom := string(core.EventCustom)
		req.Type = &custom
	}
	patch, err := req.toPatch()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	e := core.CalendarEvent{
		UserID:    s.userID(r),
		StartDate: *patch.StartDate,
		EndDate:   patch.EndDate,
		Type:      *patch.Type,
		AllDay:    true,
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.AllDay != nil {
		e.AllDay = *patch.AllDay
	}
	if patch.Color != nil {
		e.Color = *patch.Color
	}

	created, err := s.journal.CreateEvent(r.Context(), e)
	if err != nil {
		writeAPIError(w, r, "create event", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.eventsChanged, 1)
	writeJSON(w, http.StatusCreated, toEventJSON(created))
}

func parseEventID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}
	e, err := s.journal.GetEvent(r.Context(), s.userID(r), id)
	if err != nil {
		writeAPIError(w, r, "get event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventJSON(e))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}
	req, err := decodeEventRequest(w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.journal.UpdateEvent(r.Context(), s.userID(r), id, patch)
	if err != nil {
		writeAPIError(w, r, "update event", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.eventsChanged, 1)
	writeJSON(w, http.StatusOK, toEventJSON(updated))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}
	if err := s.journal.DeleteEvent(r.Context(), s.userID(r), id); err != nil {
		writeAPIError(w, r, "delete event", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.eventsChanged, 1)
	w.WriteHeader(http.StatusNoContent)
}
