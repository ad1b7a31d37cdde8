package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/engine"
	"github.com/andeanbmx/race-manager/internal/repository"
)

// ReportHandler serves the printable/exportable views: starting lists,
// per-event results, podiums and the annual ranking.
type ReportHandler struct {
	Races   *repository.RaceRepo
	Events  *repository.EventRepo
	Points  *repository.PointsRepo
	Reports *repository.ReportRepo
}

func NewReportHandler(rr *repository.RaceRepo, er *repository.EventRepo,
	pr *repository.PointsRepo, rep *repository.ReportRepo) *ReportHandler {
	return &ReportHandler{Races: rr, Events: er, Points: pr, Reports: rep}
}

// StartingLists returns the full moto/heat/lane tree of every built race in
// an event, which is exactly what gets pinned to the staging board.
func (h *ReportHandler) StartingLists(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	races, err := h.Races.List(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type raceList struct {
		Race  raceResp                `json:"race"`
		Motos []repository.MotoDetail `json:"motos"`
	}
	out := make([]raceList, 0, len(races))
	for _, ra := range races {
		if ra.Status == "PLANNED" {
			continue // nothing built yet
		}
		motos, err := h.Races.Detail(ctx, ra.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		out = append(out, raceList{Race: toRaceResp(ra), Motos: motos})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"event": toEventResp(ev),
		"races": out,
	})
}

// EventResults returns the qualifying standings of every built race in an
// event, computed live from the recorded results.
func (h *ReportHandler) EventResults(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	races, err := h.Races.List(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	points, err := h.Points.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type raceResults struct {
		Race      raceResp          `json:"race"`
		Standings []engine.Standing `json:"standings"`
	}
	out := make([]raceResults, 0, len(races))
	for _, ra := range races {
		if ra.Status == "PLANNED" {
			continue
		}
		entries, err := h.Races.ScoredEntries(ctx, ra.ID)
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
		out = append(out, raceResults{Race: toRaceResp(ra), Standings: standings})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"event":   toEventResp(ev),
		"results": out,
	})
}

// Podium returns the top three of every final in an event.
func (h *ReportHandler) Podium(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
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
	rows, err := h.Reports.Podiums(ctx, eventID, 3)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event":   toEventResp(ev),
		"podiums": rows,
	})
}

// AnnualRanking returns the year-long final-only ranking.  Unlike the
// qualifying standings this table scores 9 minus the finish position and
// higher is better.
func (h *ReportHandler) AnnualRanking(c echo.Context) error {
	year := time.Now().UTC().Year()
	if s := c.QueryParam("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 2000 || y > 2100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		year = y
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rows, err := h.Reports.AnnualRanking(ctx, year)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"year":    year,
		"ranking": rows,
	})
}
