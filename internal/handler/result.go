package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/engine"
	"github.com/andeanbmx/race-manager/internal/queue"
	"github.com/andeanbmx/race-manager/internal/repository"
	queuepub "github.com/andeanbmx/race-manager/internal/service"
)

// ResultHandler serves the timing desk endpoints.
type ResultHandler struct {
	Results *repository.ResultRepo
}

func NewResultHandler(rr *repository.ResultRepo) *ResultHandler { return &ResultHandler{Results: rr} }

type resultReq struct {
	HeatEntryID uint64 `json:"heat_entry_id"`
	Status      string `json:"status"` // OK | DQ | DNS | DNF
	FinishPos   *int   `json:"finish_pos"`
	TimeMs      *int64 `json:"time_ms"`
	Notes       string `json:"notes"`
}

var resultStatuses = map[string]bool{
	string(engine.StatusOK):  true,
	string(engine.StatusDQ):  true,
	string(engine.StatusDNS): true,
	string(engine.StatusDNF): true,
}

// normalize validates the status/position/time combination.  OK results need
// a position within the heat's lane count; non-OK results carry neither
// position nor time.
func (req *resultReq) normalize(laneCount int) string {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if !resultStatuses[req.Status] {
		return "status must be OK, DQ, DNS or DNF"
	}
	if req.Status == string(engine.StatusOK) {
		if req.FinishPos == nil {
			return "finish_pos required for OK results"
		}
		if *req.FinishPos < 1 || *req.FinishPos > laneCount {
			return "finish_pos outside heat size"
		}
		if req.TimeMs != nil && *req.TimeMs <= 0 {
			return "time_ms must be positive"
		}
		return ""
	}
	if req.FinishPos != nil || req.TimeMs != nil {
		return "finish_pos/time_ms only valid for OK results"
	}
	return ""
}

// Create records one result for a heat entry.
func (h *ResultHandler) Create(c echo.Context) error {
	var req resultReq
	if err := c.Bind(&req); err != nil || req.HeatEntryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "heat_entry_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ec, err := h.Results.EntryContextByID(ctx, req.HeatEntryID)
	if err != nil {
		if err == repository.ErrEntryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "heat entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ec.RaceStatus != "ACTIVE" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "race is not active"})
	}
	if msg := req.normalize(ec.LaneCount); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	uid, _ := getUserID(c)
	id, err := h.Results.Create(ctx, repository.Result{
		HeatEntryID: req.HeatEntryID,
		Status:      req.Status,
		FinishPos:   req.FinishPos,
		TimeMs:      req.TimeMs,
		Notes:       strings.TrimSpace(req.Notes),
		RecordedBy:  uid,
	})
	if err != nil {
		switch err {
		case repository.ErrResultExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "result already recorded"})
		case repository.ErrPositionTaken:
			return c.JSON(http.StatusConflict, echo.Map{"error": "finish position already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record result failed"})
	}

	_ = queuepub.PublishResultRecorded(context.Background(), getUserName(c), queue.ResultEvent{
		RaceID:      ec.RaceID,
		HeatEntryID: req.HeatEntryID,
		Status:      req.Status,
		FinishPos:   req.FinishPos,
		TimeMs:      req.TimeMs,
	})

	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// CreateBulk records a full heat sheet in one transaction.
func (h *ResultHandler) CreateBulk(c echo.Context) error {
	var req struct {
		Results []resultReq `json:"results"`
	}
	if err := c.Bind(&req); err != nil || len(req.Results) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "results required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	uid, _ := getUserID(c)
	rows := make([]repository.Result, 0, len(req.Results))
	var raceID uint64
	for i := range req.Results {
		rr := &req.Results[i]
		if rr.HeatEntryID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "heat_entry_id required"})
		}
		ec, err := h.Results.EntryContextByID(ctx, rr.HeatEntryID)
		if err != nil {
			if err == repository.ErrEntryNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "heat entry not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if ec.RaceStatus != "ACTIVE" {
			return c.JSON(http.StatusConflict, echo.Map{"error": "race is not active"})
		}
		if msg := rr.normalize(ec.LaneCount); msg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
		}
		raceID = ec.RaceID
		rows = append(rows, repository.Result{
			HeatEntryID: rr.HeatEntryID,
			Status:      rr.Status,
			FinishPos:   rr.FinishPos,
			TimeMs:      rr.TimeMs,
			Notes:       strings.TrimSpace(rr.Notes),
			RecordedBy:  uid,
		})
	}

	if err := h.Results.CreateBulk(ctx, rows); err != nil {
		switch err {
		case repository.ErrResultExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "result already recorded"})
		case repository.ErrPositionTaken:
			return c.JSON(http.StatusConflict, echo.Map{"error": "finish position already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record results failed"})
	}

	for _, row := range rows {
		_ = queuepub.PublishResultRecorded(context.Background(), getUserName(c), queue.ResultEvent{
			RaceID:      raceID,
			HeatEntryID: row.HeatEntryID,
			Status:      row.Status,
			FinishPos:   row.FinishPos,
			TimeMs:      row.TimeMs,
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{"recorded": len(rows)})
}

// Update corrects a recorded result.
func (h *ResultHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resultReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.normalize(engine.MaxGates); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Results.Update(ctx, id, req.Status, req.FinishPos, req.TimeMs, strings.TrimSpace(req.Notes)); err != nil {
		switch err {
		case repository.ErrResultNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "result not found"})
		case repository.ErrPositionTaken:
			return c.JSON(http.StatusConflict, echo.Map{"error": "finish position already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ResultHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Results.Delete(ctx, id); err != nil {
		if err == repository.ErrResultNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "result not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByHeat returns the recorded results of one heat.
func (h *ResultHandler) ListByHeat(c echo.Context) error {
	heatID, ok := parseID(c, "heatID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid heat id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	results, err := h.Results.ListByHeat(ctx, heatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type resultResp struct {
		ID          uint64 `json:"id"`
		HeatEntryID uint64 `json:"heat_entry_id"`
		Status      string `json:"status"`
		FinishPos   *int   `json:"finish_pos,omitempty"`
		TimeMs      *int64 `json:"time_ms,omitempty"`
		Notes       string `json:"notes,omitempty"`
	}
	out := make([]resultResp, 0, len(results))
	for _, res := range results {
		out = append(out, resultResp{
			ID:          res.ID,
			HeatEntryID: res.HeatEntryID,
			Status:      res.Status,
			FinishPos:   res.FinishPos,
			TimeMs:      res.TimeMs,
			Notes:       res.Notes,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": out})
}
