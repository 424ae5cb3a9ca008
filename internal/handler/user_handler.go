package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/chessbick/doctor-appointment/internal/errors"
	"github.com/chessbick/doctor-appointment/internal/service"
)

// UserHandler bundles user management endpoints.
type UserHandler struct {
	users service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UpdateUserRequest represents a partial user update. Absent fields are left
// untouched; a non-empty role_ids replaces the user's role set, while an
// absent or empty list leaves roles as they are.
type UpdateUserRequest struct {
	Username string `json:"username,omitempty" validate:"omitempty,max=100"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active,omitempty"`
	IsLocked *bool  `json:"is_locked,omitempty"`
	RoleIDs  []uint `json:"role_ids,omitempty"`

	FirstName      string     `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName       string     `json:"last_name,omitempty" validate:"omitempty,max=100"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	IDNumber       string     `json:"id_number,omitempty" validate:"omitempty,max=20"`
	Address        string     `json:"address,omitempty" validate:"omitempty,max=200"`
	PhoneNumber    string     `json:"phone_number,omitempty" validate:"omitempty,max=20"`
	PracticeNumber string     `json:"practice_number,omitempty" validate:"omitempty,max=50"`
	Qualification  string     `json:"qualification,omitempty" validate:"omitempty,max=200"`
	Specialization string     `json:"specialization,omitempty" validate:"omitempty,max=100"`
}

func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func serviceError(err error) *echo.HTTPError {
	httpErr := apierrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} model.UserView
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// ListUsers godoc
// @Summary List all users
// @Tags users
// @Produce json
// @Success 200 {array} model.UserView
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	views, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, views)
}

// ListUsersByRole godoc
// @Summary List users holding a role
// @Tags users
// @Produce json
// @Param roleName path string true "Role name (Admin, Doctor, Patient)"
// @Success 200 {array} model.UserView
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/role/{roleName} [get]
func (h *UserHandler) ListUsersByRole(c echo.Context) error {
	views, err := h.users.ListUsersByRole(c.Request().Context(), c.Param("roleName"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, views)
}

// UpdateUser godoc
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to update"
// @Success 200 {object} model.UserView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	view, err := h.users.UpdateUser(c.Request().Context(), service.UpdateInput{
		ID:             id,
		Username:       req.Username,
		Email:          req.Email,
		IsActive:       req.IsActive,
		IsLocked:       req.IsLocked,
		RoleIDs:        req.RoleIDs,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DateOfBirth:    req.DateOfBirth,
		IDNumber:       req.IDNumber,
		Address:        req.Address,
		PhoneNumber:    req.PhoneNumber,
		PracticeNumber: req.PracticeNumber,
		Qualification:  req.Qualification,
		Specialization: req.Specialization,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags users
// @Param id path int true "User ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param roleId path int true "Role ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/roles/{roleId} [post]
func (h *UserHandler) AssignRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	roleID, err := pathID(c, "roleId")
	if err != nil {
		return err
	}
	if err := h.users.AssignRole(c.Request().Context(), id, roleID); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"assigned": true})
}

// RemoveRole godoc
// @Summary Remove a role from a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param roleId path int true "Role ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/roles/{roleId} [delete]
func (h *UserHandler) RemoveRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	roleID, err := pathID(c, "roleId")
	if err != nil {
		return err
	}
	if err := h.users.RemoveRole(c.Request().Context(), id, roleID); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"removed": true})
}

// LockUser godoc
// @Summary Lock a user account
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/lock [post]
func (h *UserHandler) LockUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Lock(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"locked": true})
}

// UnlockUser godoc
// @Summary Unlock a user account and reset its failed-login counter
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/unlock [post]
func (h *UserHandler) UnlockUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Unlock(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"locked": false})
}
