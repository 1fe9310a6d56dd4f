package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"formini/internal/config"
	"formini/internal/handler"
	"formini/internal/metrics"
	"formini/internal/middleware"
	"formini/internal/model"
)

// requestBodyLimit leaves room for a maximum size CV plus form fields.
const requestBodyLimit = "6M"

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth  *handler.AuthHandler
	OAuth *handler.OAuthHandler
	User  *handler.UserHandler
	Admin *handler.AdminHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	h Handlers,
	gate *middleware.AccessGate,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) {
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(requestBodyLimit))
	e.Use(m.Middleware())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/verify-mfa", h.Auth.VerifyMFA)
	authGroup.POST("/resend-verification", h.Auth.ResendVerification)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/login-mfa", h.Auth.LoginMFA)
	authGroup.POST("/complete-profile", h.Auth.CompleteProfile)
	authGroup.POST("/google-login", h.OAuth.GoogleLogin)
	authGroup.POST("/facebook-login", h.OAuth.FacebookLogin)
	authGroup.GET("/google", h.OAuth.GoogleRedirect)
	authGroup.GET("/google/callback", h.OAuth.GoogleCallback)

	// Secured routes (require a session token and an account in good standing)
	secured := api.Group("", gate.Authenticate())
	secured.GET("/users/me", h.User.Me)

	admin := secured.Group("/admin", middleware.RequireRoles(model.RoleAdmin))
	admin.GET("/pending-instructors", h.Admin.ListPendingInstructors)
	admin.POST("/instructors/:id/approve", h.Admin.ApproveInstructor)
	admin.POST("/instructors/:id/reject", h.Admin.RejectInstructor)
	admin.GET("/instructors/:id/cv", h.Admin.DownloadCV)
	admin.PUT("/users/:id/status", h.Admin.ToggleUserStatus)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
