package routes

import (
	"net/http"

	"wayfare/auth"
	"wayfare/bookings"
	"wayfare/middleware"
	"wayfare/ratelim"
	"wayfare/reviews"
	"wayfare/tours"
	"wayfare/users"
	"wayfare/utils"
	"wayfare/views"

	"github.com/julienschmidt/httprouter"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Limiter  *ratelim.RateLimiter
	Guard    *middleware.Guard
	Auth     *auth.Handlers
	Tours    *tours.Handlers
	Reviews  *reviews.Handlers
	Users    *users.Handlers
	Bookings *bookings.Handlers
	Views    *views.Handlers
}

func RoutesWrapper(router *httprouter.Router, d *Deps) {
	AddStaticRoutes(router)
	AddAuthRoutes(router, d)
	AddTourRoutes(router, d)
	AddReviewRoutes(router, d)
	AddUserRoutes(router, d)
	AddBookingRoutes(router, d)
	AddViewRoutes(router, d)

	router.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "success"})
	})
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/*filepath", http.Dir("static"))
}
