package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"formini/internal/model"
	"formini/internal/service"
)

// AdminHandler serves the administrator dashboard endpoints.
type AdminHandler struct {
	svc service.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// StatusRequest represents an account status change.
type StatusRequest struct {
	Status string `json:"status"`
}

// DecisionResponse reports the instructor state after a decision.
type DecisionResponse struct {
	Message string                   `json:"message"`
	User    model.Profile            `json:"user"`
	Status  model.RegistrationStatus `json:"registrationStatus"`
}

// ListPendingInstructors godoc
// @Summary Instructors awaiting approval
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.PendingInstructor
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/pending-instructors [get]
func (h *AdminHandler) ListPendingInstructors(c echo.Context) error {
	pending, err := h.svc.ListPendingInstructors(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pending)
}

// ApproveInstructor godoc
// @Summary Approve an instructor application
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} DecisionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/instructors/{id}/approve [post]
func (h *AdminHandler) ApproveInstructor(c echo.Context) error {
	user, err := h.svc.ApproveInstructor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision("instructor approved", user))
}

// RejectInstructor godoc
// @Summary Reject an instructor application
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} DecisionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/instructors/{id}/reject [post]
func (h *AdminHandler) RejectInstructor(c echo.Context) error {
	user, err := h.svc.RejectInstructor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision("instructor rejected", user))
}

func decision(msg string, u *model.User) DecisionResponse {
	status, _ := u.RegistrationStatus()
	return DecisionResponse{Message: msg, User: model.ProfileOf(u), Status: status}
}

// DownloadCV godoc
// @Summary Download an instructor CV
// @Tags admin
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {file} file
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/instructors/{id}/cv [get]
func (h *AdminHandler) DownloadCV(c echo.Context) error {
	rc, name, err := h.svc.OpenInstructorCV(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Stream(http.StatusOK, "application/pdf", rc)
}

// ToggleUserStatus godoc
// @Summary Activate or suspend an account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body StatusRequest true "active or suspended"
// @Success 200 {object} model.Profile
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/status [put]
func (h *AdminHandler) ToggleUserStatus(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(err)
	}

	user, err := h.svc.ToggleUserStatus(c.Request().Context(), c.Param("id"), model.Status(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.ProfileOf(user))
}
