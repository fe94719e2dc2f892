package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"educonnect/internal/auth"
	"educonnect/internal/handler"
	"educonnect/internal/logger"
)

// Page paths each route group is verified against.
const (
	PageAdminDashboard  = "/admin/dashboard.html"
	PageUserMaintenance = "/admin/user-maintenance.html"
	PageAuditTrail      = "/admin/audit-trail.html"
	PageEvents          = "/admin/events.html"
	PageAttendance      = "/admin/attendance.html"
	PageReports         = "/admin/reports.html"
	PageNotifications   = "/admin/notifications.html"

	PageStudentDashboard     = "/customer/dashboard.html"
	PageStudentEvents        = "/customer/events.html"
	PageStudentAttendance    = "/customer/attendance.html"
	PageStudentNotifications = "/customer/notifications.html"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	Guard         *handler.GuardHandler
	Users         *handler.UserHandler
	Events        *handler.EventHandler
	Attendance    *handler.AttendanceHandler
	Notifications *handler.NotificationHandler
	Reports       *handler.ReportHandler
	Audit         *handler.AuditHandler
	Dashboard     *handler.DashboardHandler
	Profile       *handler.ProfileHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, log *zap.Logger, jwtService *auth.JWTService, tokens auth.TokenStoreInterface, h Handlers) {
	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(handler.Origin())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/student/login", h.Auth.StudentLogin)
	api.POST("/auth/admin/login", h.Auth.AdminLogin)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/password/evaluate", h.Auth.EvaluatePassword)

	// Guard routes accept anonymous callers; the verdict covers them.
	optional := api.Group("", auth.Middleware(jwtService, tokens, true))
	optional.POST("/guard/verify", h.Guard.Verify)
	optional.GET("/guard/watch", h.Guard.Watch)
	optional.GET("/session", h.Guard.Session)

	// Secured routes (require a valid, unrevoked JWT)
	secured := api.Group("", auth.Middleware(jwtService, tokens, false))
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.Auth.Me)
	secured.GET("/profile", h.Profile.GetProfile)
	secured.PUT("/profile", h.Profile.UpdateProfile)
	secured.POST("/profile/password", h.Profile.ChangePassword)

	// Page-scoped routes: the guard re-reads the profile on every request.
	page := func(path string) *echo.Group {
		return optional.Group("", h.Guard.Protect(path))
	}

	page(PageAdminDashboard).GET("/admin/dashboard", h.Dashboard.AdminDashboard)

	users := page(PageUserMaintenance)
	users.GET("/users", h.Users.ListUsers)
	users.GET("/users/:id", h.Users.GetUser)
	users.POST("/users", h.Users.CreateUser)
	users.PUT("/users/:id", h.Users.UpdateUser)
	users.DELETE("/users/:id", h.Users.DeleteUser)

	page(PageAuditTrail).GET("/audit", h.Audit.ListAudit)

	events := page(PageEvents)
	events.GET("/events", h.Events.ListEvents)
	events.GET("/events/:id", h.Events.GetEvent)
	events.POST("/events", h.Events.CreateEvent)
	events.PUT("/events/:id", h.Events.UpdateEvent)
	events.DELETE("/events/:id", h.Events.DeleteEvent)

	attendance := page(PageAttendance)
	attendance.GET("/attendance", h.Attendance.ListAttendance)
	attendance.GET("/attendance/:id", h.Attendance.GetAttendance)
	attendance.POST("/attendance", h.Attendance.MarkAttendance)
	attendance.PUT("/attendance/:id", h.Attendance.UpdateAttendance)
	attendance.DELETE("/attendance/:id", h.Attendance.DeleteAttendance)

	reports := page(PageReports)
	reports.GET("/reports", h.Reports.ListReports)
	reports.GET("/reports/:id", h.Reports.GetReport)
	reports.POST("/reports", h.Reports.GenerateReport)

	notifications := page(PageNotifications)
	notifications.GET("/students", h.Users.ListStudents)
	notifications.GET("/notifications", h.Notifications.ListNotifications)
	notifications.GET("/notifications/:id", h.Notifications.GetNotification)
	notifications.POST("/notifications", h.Notifications.SendNotification)
	notifications.DELETE("/notifications/:id", h.Notifications.DeleteNotification)

	page(PageStudentDashboard).GET("/student/dashboard", h.Dashboard.StudentDashboard)
	page(PageStudentEvents).GET("/student/events", h.Events.StudentEvents)
	page(PageStudentAttendance).GET("/student/attendance", h.Attendance.History)
	inbox := page(PageStudentNotifications)
	inbox.GET("/student/notifications", h.Notifications.Inbox)
	inbox.POST("/student/notifications/:id/read", h.Notifications.MarkRead)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
