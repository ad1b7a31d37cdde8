package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/repository"
)

// RegistrationHandler serves event registration endpoints.  Eligibility is
// enforced here: event must be OPEN, the rider must be active and fit the
// category's age range and gender on the event date, and the category
// capacity must not be exceeded.
type RegistrationHandler struct {
	Registrations *repository.RegistrationRepo
	Events        *repository.EventRepo
	Categories    *repository.CategoryRepo
	Riders        *repository.RiderRepo
}

func NewRegistrationHandler(gr *repository.RegistrationRepo, er *repository.EventRepo,
	cr *repository.CategoryRepo, rr *repository.RiderRepo) *RegistrationHandler {
	return &RegistrationHandler{Registrations: gr, Events: er, Categories: cr, Riders: rr}
}

type registrationReq struct {
	CategoryID uint64 `json:"category_id"`
	RiderID    uint64 `json:"rider_id"`
	Seed       *int64 `json:"seed,omitempty"`
}

type registrationResp struct {
	ID         uint64 `json:"id"`
	EventID    uint64 `json:"event_id"`
	CategoryID uint64 `json:"category_id"`
	RiderID    uint64 `json:"rider_id"`
	Status     string `json:"status"`
	Seed       *int64 `json:"seed,omitempty"`
	Plate      uint32 `json:"plate,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Club       string `json:"club,omitempty"`
}

func toRegistrationResp(g repository.Registration) registrationResp {
	out := registrationResp{
		ID:         g.ID,
		EventID:    g.EventID,
		CategoryID: g.CategoryID,
		RiderID:    g.RiderID,
		Status:     g.Status,
		Plate:      g.Plate,
		FirstName:  g.FirstName,
		LastName:   g.LastName,
		Club:       g.Club,
	}
	if g.Seed.Valid {
		s := g.Seed.Int64
		out.Seed = &s
	}
	return out
}

// checkEligibility verifies event/category/rider state for one registration.
// Returns an HTTP status and message on failure, 0 on success.
func (h *RegistrationHandler) checkEligibility(ctx context.Context, ev repository.Event,
	cat repository.Category, riderID uint64) (int, string) {
	rd, err := h.Riders.GetByID(ctx, riderID)
	if err != nil {
		if err == repository.ErrRiderNotFound {
			return http.StatusNotFound, "rider not found"
		}
		return http.StatusInternalServerError, "query failed"
	}
	if !rd.IsActive {
		return http.StatusConflict, "rider is inactive"
	}
	if cat.Gender != "MIXED" && rd.Gender != cat.Gender {
		return http.StatusConflict, "rider gender does not match category"
	}
	age := ageOn(rd.DateOfBirth, ev.Date)
	if age < cat.MinAge || age > cat.MaxAge {
		return http.StatusConflict, "rider age outside category range"
	}
	if cat.MaxRiders > 0 {
		n, err := h.Registrations.CountByRace(ctx, ev.ID, cat.ID)
		if err != nil {
			return http.StatusInternalServerError, "query failed"
		}
		if n >= cat.MaxRiders {
			return http.StatusConflict, "category is full"
		}
	}
	return 0, ""
}

func (h *RegistrationHandler) Create(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req registrationReq
	if err := c.Bind(&req); err != nil || req.CategoryID == 0 || req.RiderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category_id/rider_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ev.Status != "OPEN" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for registration"})
	}
	cat, err := h.Categories.GetByID(ctx, req.CategoryID)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if status, msg := h.checkEligibility(ctx, ev, cat, req.RiderID); status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}

	id, err := h.Registrations.Create(ctx, eventID, req.CategoryID, req.RiderID, req.Seed)
	if err != nil {
		if err == repository.ErrAlreadyRegistered {
			return c.JSON(http.StatusConflict, echo.Map{"error": "rider already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "register failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// CreateBulk registers several riders into one category at once.  Riders who
// fail eligibility are reported individually; the rest are registered.
func (h *RegistrationHandler) CreateBulk(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req struct {
		CategoryID uint64   `json:"category_id"`
		RiderIDs   []uint64 `json:"rider_ids"`
	}
	if err := c.Bind(&req); err != nil || req.CategoryID == 0 || len(req.RiderIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category_id/rider_ids required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ev.Status != "OPEN" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for registration"})
	}
	cat, err := h.Categories.GetByID(ctx, req.CategoryID)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type failure struct {
		RiderID uint64 `json:"rider_id"`
		Reason  string `json:"reason"`
	}
	var (
		created  []uint64
		failures []failure
	)
	for _, riderID := range req.RiderIDs {
		if status, msg := h.checkEligibility(ctx, ev, cat, riderID); status != 0 {
			failures = append(failures, failure{RiderID: riderID, Reason: msg})
			continue
		}
		id, err := h.Registrations.Create(ctx, eventID, req.CategoryID, riderID, nil)
		if err != nil {
			reason := "register failed"
			if err == repository.ErrAlreadyRegistered {
				reason = "already registered"
			}
			failures = append(failures, failure{RiderID: riderID, Reason: reason})
			continue
		}
		created = append(created, id)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"created":  created,
		"failures": failures,
	})
}

func (h *RegistrationHandler) ListByEvent(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	regs, err := h.Registrations.ListByEvent(ctx, eventID, queryID(c, "category_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]registrationResp, 0, len(regs))
	for _, g := range regs {
		out = append(out, toRegistrationResp(g))
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": out})
}

var registrationStatuses = map[string]bool{
	"REGISTERED": true, "CONFIRMED": true, "CANCELLED": true,
}

// Update changes the status and/or seed of one registration.
func (h *RegistrationHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "regID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var req struct {
		Status    string `json:"status"`
		Seed      *int64 `json:"seed"`
		ClearSeed bool   `json:"clear_seed"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if req.Status != "" {
		if !registrationStatuses[req.Status] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		if err := h.Registrations.UpdateStatus(ctx, id, req.Status); err != nil {
			if err == repository.ErrRegistrationNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	if req.Seed != nil || req.ClearSeed {
		seed := req.Seed
		if req.ClearSeed {
			seed = nil
		}
		if err := h.Registrations.UpdateSeed(ctx, id, seed); err != nil {
			if err == repository.ErrRegistrationNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RegistrationHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "regID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Registrations.Delete(ctx, id); err != nil {
		if err == repository.ErrRegistrationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
