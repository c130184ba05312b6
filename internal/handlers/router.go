package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/herzod/shelfview-cinema/internal/container"
	"github.com/herzod/shelfview-cinema/internal/services"
	"github.com/herzod/shelfview-cinema/internal/sync"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	auth     *services.AuthService
	catalog  *services.CatalogClient
	shelf    *services.ShelfService
	syncer   *sync.Syncer
	validate *validator.Validate
	logger   *logrus.Logger
}

func New(c *container.Container) *Handler {
	return &Handler{
		auth:     c.AuthService,
		catalog:  c.CatalogClient,
		shelf:    c.ShelfService,
		syncer:   c.Syncer,
		validate: validator.New(),
		logger:   c.Logger,
	}
}

// Routes wires the API. CORS is global so OPTIONS preflights are answered
// permissively on every route.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/api/v1/health", h.Health)

	r.Route("/api/v1/auth", func(r chi.Router) {
		// Tighter limit on credential endpoints.
		r.Use(httprate.LimitByIP(20, time.Minute))

		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate, h.RequireAuth)
			r.Post("/signout", h.SignOut)
			r.Get("/me", h.Me)
		})
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/trending", h.Trending)
		r.Get("/discover", h.DiscoverByGenre)
		r.Get("/discover/person", h.DiscoverByPerson)
		r.Get("/movies/{movieID}", h.MovieDetails)
		r.Get("/movies/{movieID}/similar", h.SimilarMovies)
	})

	r.Route("/api/v1/shelf", func(r chi.Router) {
		r.Use(h.Authenticate, h.RequireAuth)

		r.Get("/", h.Shelf)
		r.Get("/ids", h.ShelfMovieIDs)
		r.Get("/{movieID}", h.ShelfEntry)
		r.Post("/{movieID}", h.AddToShelf)
		r.Patch("/{movieID}/status", h.UpdateStatus)
		r.Patch("/{movieID}/rating", h.UpdateRating)
		r.Patch("/{movieID}/notes", h.UpdateNotes)
		r.Delete("/{movieID}", h.RemoveFromShelf)
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
