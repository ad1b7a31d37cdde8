package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/repository"
)

// RiderHandler serves the rider registry endpoints.
type RiderHandler struct {
	Riders *repository.RiderRepo
}

func NewRiderHandler(r *repository.RiderRepo) *RiderHandler { return &RiderHandler{Riders: r} }

type riderReq struct {
	Plate       uint32 `json:"plate"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Club        string `json:"club"`
	Gender      string `json:"gender"` // M | F
	DateOfBirth string `json:"date_of_birth"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type riderResp struct {
	ID          uint64 `json:"id"`
	Plate       uint32 `json:"plate"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Club        string `json:"club"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	IsActive    bool   `json:"is_active"`
}

func toRiderResp(rd repository.Rider) riderResp {
	return riderResp{
		ID:          rd.ID,
		Plate:       rd.Plate,
		FirstName:   rd.FirstName,
		LastName:    rd.LastName,
		Club:        rd.Club,
		Gender:      rd.Gender,
		DateOfBirth: rd.DateOfBirth.Format("2006-01-02"),
		IsActive:    rd.IsActive,
	}
}

func (req *riderReq) validate() (repository.Rider, string) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Gender = strings.ToUpper(strings.TrimSpace(req.Gender))
	if req.Plate == 0 || req.FirstName == "" || req.LastName == "" {
		return repository.Rider{}, "plate/first_name/last_name required"
	}
	if req.Gender != "M" && req.Gender != "F" {
		return repository.Rider{}, "gender must be M or F"
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return repository.Rider{}, "date_of_birth must be YYYY-MM-DD"
	}
	if dob.After(time.Now()) {
		return repository.Rider{}, "date_of_birth is in the future"
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return repository.Rider{
		Plate:       req.Plate,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Club:        strings.TrimSpace(req.Club),
		Gender:      req.Gender,
		DateOfBirth: dob,
		IsActive:    active,
	}, ""
}

func (h *RiderHandler) Create(c echo.Context) error {
	var req riderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	rd, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Riders.Create(ctx, rd)
	if err != nil {
		if err == repository.ErrPlateExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "plate already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create rider failed"})
	}
	rd.ID = id
	return c.JSON(http.StatusCreated, toRiderResp(rd))
}

func (h *RiderHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rd, err := h.Riders.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRiderNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rider not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toRiderResp(rd))
}

func (h *RiderHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	activeOnly := c.QueryParam("all") == ""
	riders, err := h.Riders.List(ctx, strings.TrimSpace(c.QueryParam("q")), activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]riderResp, 0, len(riders))
	for _, rd := range riders {
		out = append(out, toRiderResp(rd))
	}
	return c.JSON(http.StatusOK, echo.Map{"riders": out})
}

func (h *RiderHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req riderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	rd, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	rd.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Riders.Update(ctx, rd); err != nil {
		switch err {
		case repository.ErrRiderNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rider not found"})
		case repository.ErrPlateExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "plate already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toRiderResp(rd))
}

func (h *RiderHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Riders.Delete(ctx, id); err != nil {
		if err == repository.ErrRiderNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rider not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
