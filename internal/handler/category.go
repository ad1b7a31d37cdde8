package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/repository"
)

// CategoryHandler serves the category endpoints.
type CategoryHandler struct {
	Categories *repository.CategoryRepo
}

func NewCategoryHandler(cr *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Categories: cr}
}

type categoryReq struct {
	Name      string `json:"name"`
	MinAge    int    `json:"min_age"`
	MaxAge    int    `json:"max_age"`
	Gender    string `json:"gender"` // M | F | MIXED
	Wheel     string `json:"wheel"`  // 20 | 24
	MaxRiders int    `json:"max_riders"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

type categoryResp struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	MinAge    int    `json:"min_age"`
	MaxAge    int    `json:"max_age"`
	Gender    string `json:"gender"`
	Wheel     string `json:"wheel"`
	MaxRiders int    `json:"max_riders"`
	IsActive  bool   `json:"is_active"`
}

func toCategoryResp(cat repository.Category) categoryResp {
	return categoryResp{
		ID:        cat.ID,
		Name:      cat.Name,
		MinAge:    cat.MinAge,
		MaxAge:    cat.MaxAge,
		Gender:    cat.Gender,
		Wheel:     cat.Wheel,
		MaxRiders: cat.MaxRiders,
		IsActive:  cat.IsActive,
	}
}

func (req *categoryReq) validate() (repository.Category, string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Gender = strings.ToUpper(strings.TrimSpace(req.Gender))
	req.Wheel = strings.TrimSpace(req.Wheel)
	if req.Name == "" {
		return repository.Category{}, "name required"
	}
	if req.MinAge < 0 || req.MaxAge < req.MinAge {
		return repository.Category{}, "invalid age range"
	}
	if req.Gender != "M" && req.Gender != "F" && req.Gender != "MIXED" {
		return repository.Category{}, "gender must be M, F or MIXED"
	}
	if req.Wheel != "20" && req.Wheel != "24" {
		return repository.Category{}, "wheel must be 20 or 24"
	}
	if req.MaxRiders < 0 {
		return repository.Category{}, "max_riders must not be negative"
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return repository.Category{
		Name:      req.Name,
		MinAge:    req.MinAge,
		MaxAge:    req.MaxAge,
		Gender:    req.Gender,
		Wheel:     req.Wheel,
		MaxRiders: req.MaxRiders,
		IsActive:  active,
	}, ""
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	cat, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Categories.Create(ctx, cat)
	if err != nil {
		if err == repository.ErrCategoryExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create category failed"})
	}
	cat.ID = id
	return c.JSON(http.StatusCreated, toCategoryResp(cat))
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toCategoryResp(cat))
}

func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cats, err := h.Categories.List(ctx, c.QueryParam("all") == "")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]categoryResp, 0, len(cats))
	for _, cat := range cats {
		out = append(out, toCategoryResp(cat))
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": out})
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	cat, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	cat.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Categories.Update(ctx, cat); err != nil {
		switch err {
		case repository.ErrCategoryNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		case repository.ErrCategoryExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toCategoryResp(cat))
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Categories.Delete(ctx, id); err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// EligibleRiders lists the active riders whose age and gender fit a category
// on a reference date (?on=YYYY-MM-DD, defaulting to today).  The desk uses
// this to preview who can be registered before an event opens.
func (h *CategoryHandler) EligibleRiders(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	onDate := time.Now().UTC()
	if s := c.QueryParam("on"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "on must be YYYY-MM-DD"})
		}
		onDate = d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	riders, err := h.Categories.EligibleRiders(ctx, cat, onDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]riderResp, 0, len(riders))
	for _, rd := range riders {
		out = append(out, toRiderResp(rd))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"category": toCategoryResp(cat),
		"on":       onDate.Format("2006-01-02"),
		"riders":   out,
	})
}
