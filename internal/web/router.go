package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ratelimit"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/web/handlers"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/web/middleware"
)

// RouterDeps holds all dependencies needed to build the router.
type RouterDeps struct {
	System    *handlers.SystemHandler
	Demo      *handlers.DemoHandler
	Tickets   *handlers.TicketHandler
	Mail      *handlers.MailHandler
	Customers *handlers.CustomerHandler
	Inbox     *handlers.InboxHandler
	Limiter   *ratelimit.Keyed
}

// NewRouter wires all routes into a Chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware. RequestID runs first so the logger sees the ID.
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RealIP)

	// Info endpoints stay outside the rate limit so probes never get a 429.
	r.Get("/", deps.System.HandleIndex)
	r.Get("/health", deps.System.HandleHealth)

	// Triage API (CORS, rate limited)
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS)
		if deps.Limiter != nil {
			r.Use(middleware.RateLimit(deps.Limiter))
		}

		r.Get("/api/demo", deps.Demo.HandleDemo)

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", deps.Tickets.HandleList)
			r.Get("/search", deps.Tickets.HandleSearch)
			r.Get("/{ticketID}", deps.Tickets.HandleGet)
			r.Post("/{ticketID}/classify", deps.Tickets.HandleClassify)
			r.Post("/{ticketID}/respond", deps.Tickets.HandleRespond)
			r.Put("/{ticketID}/update", deps.Tickets.HandleUpdate)
		})

		r.Route("/emails", func(r chi.Router) {
			r.Get("/unread", deps.Mail.HandleUnread)
			r.Get("/{messageID}", deps.Mail.HandleGet)
			r.Post("/{messageID}/process", deps.Mail.HandleProcess)
			r.Post("/{messageID}/send", deps.Mail.HandleSend)
		})

		r.Get("/customers/{email}/history", deps.Customers.HandleHistory)

		if deps.Inbox != nil {
			r.Post("/inbox/sweep", deps.Inbox.HandleSweep)
		}
	})

	return r
}
