// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wctimer/server/internal/domain/model"
)

// ProfileDependencies defines the interface for profile operations.
type ProfileDependencies interface {
	SaveProfile(ctx context.Context, p model.Profile) (model.Profile, error)
	GetProfile(ctx context.Context, id string) (model.Profile, error)
}

// ProfilesHandler handles profile requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

// profileRequest mirrors the OpenAPI schema for PUT /profiles/{id}.
type profileRequest struct {
	DisplayName        string  `json:"display_name"`
	MonthlySalaryCents int64   `json:"monthly_salary_cents"`
	WorkDaysPerMonth   int     `json:"work_days_per_month"`
	WorkHoursPerDay    float64 `json:"work_hours_per_day"`
}

func (req profileRequest) validate() error {
	switch {
	case strings.TrimSpace(req.DisplayName) == "":
		return errors.New("missing display_name")
	case req.MonthlySalaryCents < 0:
		return errors.New("monthly_salary_cents must not be negative")
	case req.WorkDaysPerMonth < 0 || req.WorkDaysPerMonth > 31:
		return errors.New("work_days_per_month out of range")
	case req.WorkHoursPerDay < 0 || req.WorkHoursPerDay > 24:
		return errors.New("work_hours_per_day out of range")
	}
	return nil
}

type profileView struct {
	ID                 string  `json:"id"`
	DisplayName        string  `json:"display_name"`
	MonthlySalaryCents int64   `json:"monthly_salary_cents"`
	WorkDaysPerMonth   int     `json:"work_days_per_month"`
	WorkHoursPerDay    float64 `json:"work_hours_per_day"`
}

func toProfileView(p model.Profile) profileView {
	return profileView{
		ID:                 p.ID,
		DisplayName:        p.DisplayName,
		MonthlySalaryCents: p.MonthlySalaryCents,
		WorkDaysPerMonth:   p.WorkDaysPerMonth,
		WorkHoursPerDay:    p.WorkHoursPerDay,
	}
}

// HandleProfile handles GET and PUT /profiles/{id} requests.
func (h *ProfilesHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.profile"

	id := strings.TrimPrefix(r.URL.Path, "/profiles/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.deps.GetProfile(r.Context(), id)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileView(p))
	case http.MethodPut:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		p, err := h.deps.SaveProfile(r.Context(), model.Profile{
			ID:                 id,
			DisplayName:        req.DisplayName,
			MonthlySalaryCents: req.MonthlySalaryCents,
			WorkDaysPerMonth:   req.WorkDaysPerMonth,
			WorkHoursPerDay:    req.WorkHoursPerDay,
		})
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileView(p))
	default:
		http.NotFound(w, r)
	}
}
