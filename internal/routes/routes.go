// Package routes holds the route table and the roles each route requires.
package routes

import (
	"net/http"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/handlers"
	"healthcrm/internal/middleware"
	"healthcrm/internal/models"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"
)

// Route is one gated endpoint. An empty Roles set admits any authenticated
// caller.
type Route struct {
	Method  string
	Path    string
	Roles   auth.RoleSet
	Handler echo.HandlerFunc
}

var (
	anyone        = auth.RoleSet(0)
	clinical      = auth.Roles(auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse, auth.RoleFrontDesk)
	importers     = auth.Roles(auth.RoleAdmin, auth.RoleFrontDesk)
	commercial    = auth.Roles(auth.RoleAdmin, auth.RoleSales, auth.RoleFrontDesk)
	prescribers   = auth.Roles(auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse)
	callers       = auth.Roles(auth.RoleAdmin, auth.RoleFrontDesk, auth.RoleSales)
	workflowUsers = auth.Roles(auth.RoleAdmin, auth.RolePhysician)
	admins        = auth.Roles(auth.RoleAdmin)
)

// Handlers bundles everything the route table dispatches to.
type Handlers struct {
	Auth          *handlers.AuthHandlers
	Dashboard     *handlers.DashboardHandlers
	Email         *handlers.EmailHandlers
	Calendar      *handlers.CalendarHandlers
	Patients      *handlers.RecordHandlers[models.Patient]
	Imports       *handlers.ImportHandlers
	Organizations *handlers.RecordHandlers[models.Organization]
	Contacts      *handlers.RecordHandlers[models.Contact]
	Deals         *handlers.RecordHandlers[models.Deal]
	Pipeline      *handlers.PipelineHandlers
	Prescriptions *handlers.RecordHandlers[models.Prescription]
	Prescribing   *handlers.PrescriptionHandlers
	Calls         *handlers.CallHandlers
	Workflows     *handlers.RecordHandlers[models.Workflow]
	Automation    *handlers.WorkflowHandlers
	Settings      *handlers.SettingsHandlers
	Notifications *handlers.NotificationHandlers
	Health        *handlers.HealthHandlers
}

type recordRoutes interface {
	List(echo.Context) error
	Get(echo.Context) error
	Create(echo.Context) error
	Update(echo.Context) error
	Delete(echo.Context) error
}

func crud(base, param string, roles auth.RoleSet, h recordRoutes) []Route {
	item := base + "/:" + param
	return []Route{
		{http.MethodGet, base, roles, h.List},
		{http.MethodPost, base, roles, h.Create},
		{http.MethodGet, item, roles, h.Get},
		{http.MethodPut, item, roles, h.Update},
		{http.MethodDelete, item, roles, h.Delete},
	}
}

// Table lists every gated route.
func Table(h *Handlers) []Route {
	routes := []Route{
		{http.MethodGet, "/dashboard", anyone, h.Dashboard.Summary},

		{http.MethodGet, "/email", anyone, h.Email.List},
		{http.MethodGet, "/email/compose", anyone, h.Email.Compose},
		{http.MethodGet, "/email/drafts", anyone, h.Email.ListDrafts},
		{http.MethodPost, "/email/drafts", anyone, h.Email.SaveDraft},
		{http.MethodPost, "/email/send", anyone, h.Email.Send},
		{http.MethodGet, "/email/:id", anyone, h.Email.Get},
		{http.MethodDelete, "/email/:id", anyone, h.Email.Delete},
		{http.MethodPost, "/email/:id/star", anyone, h.Email.ToggleStar},
		{http.MethodPost, "/email/:id/read", anyone, h.Email.MarkRead},
		{http.MethodPost, "/email/:id/archive", anyone, h.Email.Archive},
		{http.MethodPost, "/email/:id/labels", anyone, h.Email.AddLabel},
		{http.MethodDelete, "/email/:id/labels/:label", anyone, h.Email.RemoveLabel},
		{http.MethodPost, "/email/:id/reply", anyone, h.Email.Reply},
		{http.MethodPost, "/email/:id/forward", anyone, h.Email.Forward},
		{http.MethodPost, "/email/:id/attachments", anyone, h.Email.UploadAttachment},
		{http.MethodGet, "/email/:id/attachments/:name", anyone, h.Email.DownloadAttachment},

		{http.MethodGet, "/calendar", anyone, h.Calendar.List},
		{http.MethodPost, "/calendar/appointments", anyone, h.Calendar.Create},
		{http.MethodGet, "/calendar/appointments/:id", anyone, h.Calendar.Get},
		{http.MethodPut, "/calendar/appointments/:id", anyone, h.Calendar.Update},
		{http.MethodDelete, "/calendar/appointments/:id", anyone, h.Calendar.Delete},
		{http.MethodGet, "/calendar/appointments/:id/emails", anyone, h.Calendar.RelatedEmails},
		{http.MethodPost, "/calendar/from-email/:emailId", anyone, h.Calendar.LinkEmail},

		{http.MethodPost, "/patients/import", importers, h.Imports.Start},
		{http.MethodGet, "/imports/:id", importers, h.Imports.Status},
		{http.MethodDelete, "/imports/:id", importers, h.Imports.Cancel},

		{http.MethodGet, "/deals/pipeline", commercial, h.Pipeline.Summary},
		{http.MethodPut, "/deals/:id/stage", commercial, h.Pipeline.MoveStage},
		{http.MethodPut, "/prescriptions/:id/status", prescribers, h.Prescribing.SetStatus},
		{http.MethodGet, "/prescriptions/:id/pdf", prescribers, h.Prescribing.Print},
		{http.MethodPost, "/workflows/:id/activate", workflowUsers, h.Automation.Activate},
		{http.MethodPost, "/workflows/:id/pause", workflowUsers, h.Automation.Pause},

		{http.MethodGet, "/settings", admins, h.Settings.ListUsers},
		{http.MethodPost, "/settings/users", admins, h.Settings.CreateUser},

		{http.MethodGet, "/notifications", anyone, h.Notifications.Drain},
		{http.MethodGet, "/status/pending", anyone, h.Notifications.Pending},
		{http.MethodPost, "/status/pending", anyone, h.Notifications.Increment},
		{http.MethodDelete, "/status/pending", anyone, h.Notifications.Decrement},
	}
	routes = append(routes, crud("/patients", "patientId", clinical, h.Patients)...)
	routes = append(routes, crud("/organizations", "id", commercial, h.Organizations)...)
	routes = append(routes, crud("/contacts", "id", commercial, h.Contacts)...)
	routes = append(routes, crud("/deals", "id", commercial, h.Deals)...)
	routes = append(routes, crud("/prescriptions", "id", prescribers, h.Prescriptions)...)
	routes = append(routes, crud("/calls", "id", callers, h.Calls)...)
	routes = append(routes, crud("/workflows", "id", workflowUsers, h.Workflows)...)
	return routes
}

// Options tunes the public endpoints.
type Options struct {
	LoginRate  rate.Limit
	LoginBurst int
	Swagger    bool
}

// Register mounts the public endpoints and every gated route. The
// authenticate middleware must already be installed on e.
func Register(e *echo.Echo, h *Handlers, opts Options) {
	e.GET("/health", h.Health.HealthCheck)
	e.GET("/health/ready", h.Health.ReadinessCheck)
	e.GET("/health/live", h.Health.LivenessCheck)
	if opts.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, middleware.HomePath)
	})
	e.GET(middleware.LoginPath, h.Auth.LoginPage)
	login := []echo.MiddlewareFunc{}
	if opts.LoginRate > 0 {
		login = append(login, echoMiddleware.RateLimiter(
			echoMiddleware.NewRateLimiterMemoryStoreWithConfig(echoMiddleware.RateLimiterMemoryStoreConfig{
				Rate:      opts.LoginRate,
				Burst:     opts.LoginBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		))
	}
	e.POST(middleware.LoginPath, h.Auth.Login, login...)
	e.POST("/auth/token", h.Auth.Token, login...)
	e.POST("/logout", h.Auth.Logout)

	for _, r := range Table(h) {
		e.Add(r.Method, r.Path, r.Handler, middleware.Gate(r.Roles))
	}
}
