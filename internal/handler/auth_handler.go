package handler

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"formini/internal/model"
	"formini/internal/service"
	"formini/internal/storage"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a registration request. Instructors send it as
// multipart/form-data with the CV in the "cv" part.
type RegisterRequest struct {
	FirstName        string `json:"firstName" form:"firstName"`
	LastName         string `json:"lastName" form:"lastName"`
	Email            string `json:"email" form:"email"`
	Password         string `json:"password" form:"password"`
	Role             string `json:"role" form:"role"`
	CentreProfession string `json:"centreProfession" form:"centreProfession"`
}

// VerifyMFARequest represents a verification code submission.
type VerifyMFARequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// ResendRequest represents a request for a new verification code.
type ResendRequest struct {
	Email string `json:"email" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CompleteProfileRequest carries the missing names of an externally created account.
type CompleteProfileRequest struct {
	Token     string `json:"token" validate:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// EmailSentResponse acknowledges a code delivery attempt.
type EmailSentResponse struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"emailSent"`
}

// Register godoc
// @Summary Register a student or instructor
// @Tags auth
// @Accept json,mpfd
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Param cv formData file false "Instructor CV (PDF, max 5MB)"
// @Success 201 {object} service.RegisterResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(err)
	}

	in := service.RegisterInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Password:         req.Password,
		Role:             model.Role(strings.ToLower(strings.TrimSpace(req.Role))),
		CentreProfession: req.CentreProfession,
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("cv")
		switch {
		case stderrors.Is(err, http.ErrMissingFile):
		case err != nil:
			return invalidRequest(err)
		default:
			f, err := fh.Open()
			if err != nil {
				return invalidRequest(err)
			}
			defer f.Close()
			in.CV = &storage.CVUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get(echo.HeaderContentType),
				Size:        fh.Size,
				Body:        f,
			}
		}
	}

	res, err := h.authService.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// VerifyMFA godoc
// @Summary Verify an emailed code and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyMFARequest true "Email and code"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/verify-mfa [post]
func (h *AuthHandler) VerifyMFA(c echo.Context) error {
	var req VerifyMFARequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.VerifyMFA(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// ResendVerification godoc
// @Summary Send a new verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResendRequest true "Email"
// @Success 200 {object} EmailSentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req ResendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sent, err := h.authService.ResendVerificationCode(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EmailSentResponse{Message: "verification code sent", EmailSent: sent})
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.LoginDirect(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// LoginMFA godoc
// @Summary Check the password and email a second-factor code
// @Description The administrator account receives a session directly.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginChallenge
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/login-mfa [post]
func (h *AuthHandler) LoginMFA(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	challenge, err := h.authService.LoginWithMFAChallenge(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, challenge)
}

// CompleteProfile godoc
// @Summary Fill the missing names of an account created by an external provider
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CompleteProfileRequest true "Completion token and names"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/complete-profile [post]
func (h *AuthHandler) CompleteProfile(c echo.Context) error {
	var req CompleteProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.CompleteProfile(c.Request().Context(), req.Token, req.FirstName, req.LastName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidRequest(err)
	}
	if err := c.Validate(req); err != nil {
		return invalidRequest(err)
	}
	return nil
}
