package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/chessbick/doctor-appointment/internal/errors"
	"github.com/chessbick/doctor-appointment/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	users service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
	RoleIDs  []uint `json:"role_ids" validate:"required,min=1"`

	FirstName      string     `json:"first_name" validate:"required,max=100"`
	LastName       string     `json:"last_name" validate:"required,max=100"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	IDNumber       string     `json:"id_number,omitempty" validate:"max=20"`
	Address        string     `json:"address,omitempty" validate:"max=200"`
	PhoneNumber    string     `json:"phone_number,omitempty" validate:"max=20"`
	PracticeNumber string     `json:"practice_number,omitempty" validate:"max=50"`
	Qualification  string     `json:"qualification,omitempty" validate:"max=200"`
	Specialization string     `json:"specialization,omitempty" validate:"max=100"`
}

// LoginRequest represents a login request; the identifier may be a username
// or an email address.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	UserID          uint   `json:"user_id" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.UserView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	view, err := h.users.Register(c.Request().Context(), service.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
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
		httpErr := apierrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, view)
}

// Login godoc
// @Summary Login with username or email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.users.Login(c.Request().Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		httpErr := apierrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, result)
}

// Logout godoc
// @Summary Logout a user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LogoutRequest true "User to log out"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.users.Logout(c.Request().Context(), req.UserID); err != nil {
		httpErr := apierrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// ChangePassword godoc
// @Summary Change a user's password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Password change data"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.users.ChangePassword(c.Request().Context(), req.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httpErr := apierrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password changed successfully"})
}
