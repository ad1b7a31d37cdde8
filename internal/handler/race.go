package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/engine"
	"github.com/andeanbmx/race-manager/internal/queue"
	"github.com/andeanbmx/race-manager/internal/repository"
	queuepub "github.com/andeanbmx/race-manager/internal/service"
)

// RaceHandler serves race lifecycle endpoints: create, build the moto plan,
// compute standings and assign the final.
type RaceHandler struct {
	Races         *repository.RaceRepo
	Registrations *repository.RegistrationRepo
	Events        *repository.EventRepo
	Categories    *repository.CategoryRepo
	Points        *repository.PointsRepo
}

func NewRaceHandler(rr *repository.RaceRepo, gr *repository.RegistrationRepo,
	er *repository.EventRepo, cr *repository.CategoryRepo, pr *repository.PointsRepo) *RaceHandler {
	return &RaceHandler{Races: rr, Registrations: gr, Events: er, Categories: cr, Points: pr}
}

type raceResp struct {
	ID              uint64 `json:"id"`
	EventID         uint64 `json:"event_id"`
	EventName       string `json:"event_name"`
	CategoryID      uint64 `json:"category_id"`
	CategoryName    string `json:"category_name"`
	RoundCount      int    `json:"round_count"`
	SeedValue       string `json:"seed_value"`
	GateChoiceFinal bool   `json:"gate_choice_final"`
	Status          string `json:"status"`
}

func toRaceResp(ra repository.Race) raceResp {
	return raceResp{
		ID:              ra.ID,
		EventID:         ra.EventID,
		EventName:       ra.EventName,
		CategoryID:      ra.CategoryID,
		CategoryName:    ra.CategoryName,
		RoundCount:      ra.RoundCount,
		SeedValue:       ra.SeedValue,
		GateChoiceFinal: ra.GateChoiceFinal,
		Status:          ra.Status,
	}
}

// Create registers a PLANNED race for an event+category pair.  When no seed
// is given one is derived from the pair and the current time, so rebuild
// disputes can always be settled by replaying the stored seed.
func (h *RaceHandler) Create(c echo.Context) error {
	var req struct {
		EventID         uint64 `json:"event_id"`
		CategoryID      uint64 `json:"category_id"`
		RoundCount      int    `json:"round_count"`
		SeedValue       string `json:"seed_value"`
		GateChoiceFinal *bool  `json:"gate_choice_final"`
	}
	if err := c.Bind(&req); err != nil || req.EventID == 0 || req.CategoryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id/category_id required"})
	}
	if req.RoundCount == 0 {
		req.RoundCount = engine.MinRounds
	}
	if req.RoundCount < engine.MinRounds || req.RoundCount > engine.MaxRounds {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("round_count must be between %d and %d", engine.MinRounds, engine.MaxRounds),
		})
	}
	seed := strings.TrimSpace(req.SeedValue)
	if seed == "" {
		seed = fmt.Sprintf("race-%d-%d-%d", req.EventID, req.CategoryID, time.Now().UTC().Unix())
	}
	gateChoice := true
	if req.GateChoiceFinal != nil {
		gateChoice = *req.GateChoiceFinal
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, req.EventID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.Categories.GetByID(ctx, req.CategoryID); err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	id, err := h.Races.Create(ctx, req.EventID, req.CategoryID, req.RoundCount, seed, gateChoice)
	if err != nil {
		if err == repository.ErrRaceExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "race already exists for this category"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create race failed"})
	}

	ra, err := h.Races.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, toRaceResp(ra))
}

func (h *RaceHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	races, err := h.Races.List(ctx, queryID(c, "event_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]raceResp, 0, len(races))
	for _, ra := range races {
		out = append(out, toRaceResp(ra))
	}
	return c.JSON(http.StatusOK, echo.Map{"races": out})
}

// Get returns the race with its full moto/heat/entry tree and any results.
func (h *RaceHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ra, err := h.Races.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRaceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "race not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	motos, err := h.Races.Detail(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"race":  toRaceResp(ra),
		"motos": motos,
	})
}

// Build generates and persists the moto plan for a race.  The whole draw is
// a pure function of the stored seed, so running Build twice on the same
// roster would produce the same plan; the persistence layer still rejects a
// second build outright.
func (h *RaceHandler) Build(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ra, err := h.Races.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRaceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "race not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	roster, err := h.Registrations.Roster(ctx, ra.EventID, ra.CategoryID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	plan, err := engine.BuildPlan(roster, ra.RoundCount, ra.SeedValue)
	if err != nil {
		switch err {
		case engine.ErrEmptyRoster:
			return c.JSON(http.StatusConflict, echo.Map{"error": "no confirmed registrations"})
		case engine.ErrRoundCount:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid round count"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "build failed"})
	}
	if err := plan.Validate(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generated plan invalid"})
	}

	if err := h.Races.SavePlan(ctx, id, plan); err != nil {
		switch err {
		case repository.ErrRaceAlreadyBuilt:
			return c.JSON(http.StatusConflict, echo.Map{"error": "race already built"})
		case repository.ErrRaceNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "race not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save plan failed"})
	}

	heatCount := 0
	for _, round := range plan.Rounds {
		heatCount += len(round.Heats)
	}

	// Fire-and-forget activity event.
	_ = queuepub.PublishRaceBuilt(context.Background(), getUserName(c), queue.RaceBuiltEvent{
		RaceID:     id,
		EventID:    ra.EventID,
		CategoryID: ra.CategoryID,
		Seed:       plan.Seed,
		RoundCount: plan.RoundCount,
		RiderCount: len(roster),
		HeatCount:  heatCount,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"race_id":     id,
		"seed":        plan.Seed,
		"round_count": plan.RoundCount,
		"rider_count": len(roster),
		"heat_count":  heatCount,
	})
}

// Standings computes the live qualifying table from the recorded results.
func (h *RaceHandler) Standings(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ra, err := h.Races.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRaceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "race not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	entries, err := h.Races.ScoredEntries(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	points, err := h.Points.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	standings, err := engine.ComputeStandings(entries, points, engine.FinalSlotCount)
	if err != nil {
		if err == engine.ErrDuplicateFinishPos {
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting finish positions recorded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "standings failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"race":      toRaceResp(ra),
		"standings": standings,
	})
}

// AssignFinal seats the qualified riders in the final heat.  Races with gate
// choice enabled run the ranking-based pick; otherwise lanes are drawn
// randomly under the race seed.
func (h *RaceHandler) AssignFinal(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ra, err := h.Races.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRaceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "race not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	entries, err := h.Races.ScoredEntries(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	points, err := h.Points.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	standings, err := engine.ComputeStandings(entries, points, engine.FinalSlotCount)
	if err != nil {
		if err == engine.ErrDuplicateFinishPos {
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting finish positions recorded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "standings failed"})
	}
	qualifiers := engine.Qualifiers(standings)
	if len(qualifiers) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no qualified riders yet"})
	}

	var assignments []engine.FinalAssignment
	if ra.GateChoiceFinal {
		assignments, err = engine.AssignFinalByChoice(qualifiers)
	} else {
		finalists := make([]engine.Rider, len(qualifiers))
		for i, q := range qualifiers {
			finalists[i] = q.Rider
		}
		assignments, err = engine.AssignFinalRandom(finalists, ra.SeedValue)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "final assignment failed"})
	}

	if err := h.Races.ReplaceFinalEntries(ctx, id, assignments); err != nil {
		switch err {
		case repository.ErrFinalNotFound:
			return c.JSON(http.StatusConflict, echo.Map{"error": "race has no built final"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "final results already recorded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save final failed"})
	}

	type assignmentResp struct {
		RiderID     uint64 `json:"rider_id"`
		GateNo      int    `json:"gate_no"`
		ChoiceOrder int    `json:"choice_order,omitempty"`
	}
	out := make([]assignmentResp, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentResp{RiderID: a.RiderID, GateNo: a.GateNo, ChoiceOrder: a.ChoiceOrder})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"race_id":     id,
		"gate_choice": ra.GateChoiceFinal,
		"assignments": out,
	})
}

// Delete removes a race and its plan.  Races with recorded results are kept.
func (h *RaceHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Races.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrRaceNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "race not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "race has recorded results"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
