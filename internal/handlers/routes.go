package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

type Handlers struct {
	Health       *HealthHandler
	Users        *UserHandler
	Google       *GoogleOAuthHandler
	Verification *VerificationHandler
	Developers   *DeveloperHandler
	Clients      *ClientHandler
	Projects     *ProjectHandler
	Ratings      *RatingHandler
	Chat         *ChatHandler
}

// Register mounts every route on app.
func Register(app *fiber.App, h Handlers, jwtSecret string) {
	app.Get("/health", h.Health.Check)

	authn := []fiber.Handler{middleware.JWT(jwtSecret), middleware.AttachJWTLocals()}
	protect := func(hs ...fiber.Handler) []fiber.Handler {
		out := make([]fiber.Handler, 0, len(authn)+len(hs))
		return append(append(out, authn...), hs...)
	}
	admin := middleware.RequireRoles(models.RoleAdmin)
	developer := middleware.RequireRoles(models.RoleDeveloper)
	clientOrAdmin := middleware.RequireRoles(models.RoleClient, models.RoleAdmin)

	api := app.Group("/api")

	// users
	u := api.Group("/users")
	u.Post("/register", h.Users.Register)
	u.Post("/login", h.Users.Login)
	u.Post("/refresh", h.Users.Refresh)
	u.Post("/logout", h.Users.Logout)
	u.Get("/exists/:email", h.Users.EmailExists)
	u.Get("/oauth/google/start", h.Google.GoogleStart)
	u.Get("/oauth/google/callback", h.Google.GoogleCallback)
	u.Get("/", protect(h.Users.List)...)
	u.Get("/me/developer", protect(developer, h.Users.MyDeveloperProfile)...)
	u.Get("/email/:email", protect(h.Users.GetByEmail)...)
	u.Get("/role/:role", protect(h.Users.ListByRole)...)
	u.Get("/:id", protect(h.Users.Get)...)
	u.Put("/:id", protect(h.Users.Update)...)
	u.Patch("/:id/status", protect(h.Users.UpdateStatus)...)
	u.Patch("/:id/last-seen", protect(h.Users.TouchLastSeen)...)
	u.Delete("/:id", protect(h.Users.Delete)...)
	u.Post("/:id/change-password", protect(h.Users.ChangePassword)...)
	u.Patch("/:id/activate", protect(admin, h.Users.Activate)...)
	u.Patch("/:id/deactivate", protect(h.Users.Deactivate)...)

	// account verification
	av := api.Group("/account-verification")
	av.Post("/verify", h.Verification.Verify)
	av.Post("/resend-code", h.Verification.ResendCode)

	// profiles
	d := api.Group("/developers")
	d.Get("/all", protect(h.Developers.ListAll)...)
	d.Get("/all-with-stats", protect(h.Developers.ListWithStats)...)
	d.Put("/me", protect(developer, h.Developers.UpdateMine)...)
	d.Get("/:id", protect(h.Developers.Get)...)

	cl := api.Group("/clients")
	cl.Get("/", protect(h.Clients.List)...)
	cl.Put("/me", protect(middleware.RequireRoles(models.RoleClient), h.Clients.UpdateMine)...)
	cl.Get("/:id", protect(h.Clients.Get)...)

	// projects
	p := api.Group("/projects")
	p.Post("/create", protect(clientOrAdmin, h.Projects.Create)...)
	p.Put("/update/:id", protect(h.Projects.Update)...)
	p.Delete("/delete/:id", protect(h.Projects.Delete)...)
	p.Get("/all", protect(h.Projects.List)...)
	p.Get("/pending", protect(h.Projects.ListPending)...)
	p.Get("/my-developer-projects", protect(developer, h.Projects.ListMineAsDeveloper)...)
	p.Get("/status/:status", protect(h.Projects.ListByStatus)...)
	p.Get("/client/:clientId", protect(h.Projects.ListByClient)...)
	p.Get("/developer/:devId", protect(h.Projects.ListByDeveloper)...)
	p.Patch("/:id/complete", protect(h.Projects.Complete)...)
	p.Patch("/:id/status", protect(h.Projects.SetStatusQuery)...)
	p.Put("/:id/status", protect(h.Projects.SetStatusBody)...)
	p.Post("/:id/claim", protect(developer, h.Projects.Claim)...)
	p.Get("/:id", protect(h.Projects.Get)...)
	p.Get("/", protect(h.Projects.List)...)

	// ratings
	r := api.Group("/ratings")
	r.Post("/create", protect(clientOrAdmin, h.Ratings.Create)...)
	r.Get("/developer/:developerId", protect(h.Ratings.ForDeveloper)...)
	r.Get("/developer/:developerId/average", protect(h.Ratings.Average)...)

	// messaging
	m := api.Group("/messages")
	m.Post("/", protect(h.Chat.SendMessage)...)
	m.Get("/with/:userId", protect(h.Chat.MessagesWith)...)
	m.Patch("/:id/delivered", protect(h.Chat.MarkDelivered)...)

	cv := api.Group("/conversations")
	cv.Get("/", protect(h.Chat.GetConversations)...)
	cv.Get("/unread-count", protect(h.Chat.UnreadCount)...)
	cv.Get("/:id/messages", protect(h.Chat.GetMessages)...)
	cv.Patch("/:id/read", protect(h.Chat.MarkAsRead)...)

	// the socket authenticates with ?token=
	app.Get("/ws", h.Chat.WebSocketUpgrade, websocket.New(h.Chat.WebSocketHandler))
}
