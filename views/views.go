package views

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"wayfare/middleware"
	"wayfare/models"
	"wayfare/store"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

//go:embed templates/*.html
var templateFS embed.FS

const opTimeout = 10 * time.Second

type Handlers struct {
	Tours    *store.Mongo[models.Tour]
	Users    *store.Mongo[models.User]
	Reviews  *store.Mongo[models.Review]
	Bookings *store.Mongo[models.Booking]
	Dev      bool

	tmpl *template.Template
}

func New(tours *store.Mongo[models.Tour], users *store.Mongo[models.User], reviews *store.Mongo[models.Review], bookings *store.Mongo[models.Booking], dev bool) (*Handlers, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handlers{
		Tours:    tours,
		Users:    users,
		Reviews:  reviews,
		Bookings: bookings,
		Dev:      dev,
		tmpl:     tmpl,
	}, nil
}

// page is the root object every template receives. User is nil for visitors.
type page struct {
	Title string
	User  *models.User
	Data  any
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	user, _ := middleware.PrincipalFrom(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, page{Title: title, User: user, Data: data}); err != nil {
		slog.Error("template render failed", "template", name, "err", err)
	}
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	user, _ := middleware.PrincipalFrom(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := h.tmpl.ExecuteTemplate(w, "error.html", page{Title: "Something went wrong", User: user, Data: message}); err != nil {
		slog.Error("template render failed", "template", "error.html", "err", err)
	}
}

// Overview lists every visible tour.
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	tours, err := h.Tours.FindAll(ctx, bson.M{}, nil)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Could not load tours")
		return
	}
	h.render(w, r, "overview.html", "All Tours", tours)
}

type tourPage struct {
	Tour    *models.Tour
	Guides  []models.User
	Reviews []models.Review
}

// Tour shows a single tour by slug, with its guides and reviews.
func (h *Handlers) Tour(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	tour, err := h.Tours.FindOne(ctx, bson.M{"slug": ps.ByName("slug")})
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "There is no tour with that name.")
		return
	}

	detail := tourPage{Tour: tour}
	if len(tour.Guides) > 0 {
		if guides, err := h.Users.FindAll(ctx, bson.M{"_id": bson.M{"$in": tour.Guides}}, nil); err == nil {
			detail.Guides = guides
		}
	}
	if reviews, err := h.Reviews.FindAll(ctx, bson.M{"tourid": tour.ID}, nil); err == nil {
		detail.Reviews = reviews
	}

	h.render(w, r, "tour.html", tour.Name+" Tour", detail)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.render(w, r, "login.html", "Log into your account", nil)
}

func (h *Handlers) Account(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.render(w, r, "account.html", "Your account", user)
}

// MyTours lists the tours the signed-in user has booked.
func (h *Handlers) MyTours(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	bookings, err := h.Bookings.FindAll(ctx, bson.M{"userid": user.ID}, nil)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Could not load your bookings")
		return
	}

	tourIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		tourIDs = append(tourIDs, b.TourID)
	}
	tours := []models.Tour{}
	if len(tourIDs) > 0 {
		tours, err = h.Tours.FindAll(ctx, bson.M{"_id": bson.M{"$in": tourIDs}}, nil)
		if err != nil {
			h.renderError(w, r, http.StatusInternalServerError, "Could not load your bookings")
			return
		}
	}
	h.render(w, r, "mytours.html", "My Tours", tours)
}
