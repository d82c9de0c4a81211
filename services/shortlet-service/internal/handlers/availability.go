package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/availability"
)

type windowItem struct {
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type slotItem struct {
	StartUTC  string `json:"start_utc"`
	LocalTime string `json:"local_time"`
}

type slotsResponse struct {
	PropertyID string       `json:"property_id"`
	Date       string       `json:"date"`
	Timezone   string       `json:"timezone"`
	Windows    []windowItem `json:"windows"`
	Slots      []slotItem   `json:"slots"`
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	propertyID := strings.TrimSpace(q.Get("property_id"))
	date := strings.TrimSpace(q.Get("date"))
	if propertyID == "" || date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "property_id and date are required")
		return
	}
	slotMinutes := 0
	if raw := q.Get("slot_minutes"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 240 {
			httpx.WriteError(w, http.StatusBadRequest, "slot_minutes must be between 1 and 240")
			return
		}
		slotMinutes = v
	}

	day, err := h.engine.Slots(r.Context(), propertyID, date, slotMinutes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlotsResponse(propertyID, day))
}

func toSlotsResponse(propertyID string, day availability.Day) slotsResponse {
	resp := slotsResponse{
		PropertyID: propertyID,
		Date:       day.Date,
		Timezone:   day.Timezone,
		Windows:    make([]windowItem, 0, len(day.Windows)),
		Slots:      make([]slotItem, 0, len(day.Slots)),
	}
	for _, win := range day.Windows {
		resp.Windows = append(resp.Windows, windowItem{
			StartMinute: win.Start,
			EndMinute:   win.End,
			Start:       availability.FormatMinute(win.Start),
			End:         availability.FormatMinute(win.End),
		})
	}
	for _, s := range day.Slots {
		resp.Slots = append(resp.Slots, slotItem{StartUTC: s.Start.Format(time.RFC3339), LocalTime: s.Label})
	}
	return resp
}

type validateViewingRequest struct {
	PropertyID     string   `json:"property_id"`
	PreferredTimes []string `json:"preferred_times"`
}

type validateViewingResponse struct {
	PropertyID     string   `json:"property_id"`
	PreferredTimes []string `json:"preferred_times"`
}

func (h *Handler) ValidateViewing(w http.ResponseWriter, r *http.Request) {
	var req validateViewingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	instants := make([]time.Time, 0, len(req.PreferredTimes))
	for _, raw := range req.PreferredTimes {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "preferred_times must be RFC3339 instants")
			return
		}
		instants = append(instants, t)
	}

	normalized, err := h.engine.ValidateViewing(r.Context(), strings.TrimSpace(req.PropertyID), instants)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := validateViewingResponse{PropertyID: strings.TrimSpace(req.PropertyID), PreferredTimes: make([]string, 0, len(normalized))}
	for _, t := range normalized {
		resp.PreferredTimes = append(resp.PreferredTimes, t.UTC().Format(time.RFC3339))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
