package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/andeanbmx/race-manager/internal/config"
	"github.com/andeanbmx/race-manager/internal/engine"
	"github.com/andeanbmx/race-manager/internal/middleware"
	"github.com/andeanbmx/race-manager/internal/repository"
)

// AdminHandler serves the admin console: staff accounts and the points table.
type AdminHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Points *repository.PointsRepo
}

func NewAdminHandler(cfg config.Config, ur *repository.UserRepo, pr *repository.PointsRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: ur, Points: pr}
}

var staffRoles = map[string]bool{
	middleware.RoleAdmin:        true,
	middleware.RoleSecretaria:   true,
	middleware.RoleCronometraje: true,
	middleware.RoleJuez:         true,
	middleware.RolePublico:      true,
}

// GetPoints returns the configurable points table.
func (h *AdminHandler) GetPoints(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	table, err := h.Points.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"points":             table,
		"worst_place_points": engine.WorstPlacePoints,
	})
}

// UpdatePoints replaces entries of the points table.  Only places 1..8 are
// accepted; place 9 is the fixed worst-place penalty and cannot be tuned.
func (h *AdminHandler) UpdatePoints(c echo.Context) error {
	var req struct {
		Points map[int]int `json:"points"`
	}
	if err := c.Bind(&req); err != nil || len(req.Points) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "points required"})
	}
	table := make(engine.PointsTable, len(req.Points))
	for place, pts := range req.Points {
		if place < 1 || place > engine.MaxGates {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "places must be between 1 and 8"})
		}
		if pts < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "points must not be negative"})
		}
		table[place] = pts
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Points.Update(ctx, table); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type adminUserResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// ListUsers returns every account for the admin console.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, IsActive: u.IsActive})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// CreateUser creates an account with any role, including staff roles that
// self-registration never grants.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}
	if !staffRoles[req.Role] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.Role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// UpdateUser changes name, role and active flag of an account.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Name     string `json:"name"`
		Role     string `json:"role"`
		IsActive *bool  `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if req.Name == "" || !staffRoles[req.Role] || req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/role/is_active required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.Update(ctx, id, req.Name, req.Role, *req.IsActive); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
