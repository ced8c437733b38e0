package routes

import (
	"wayfare/models"

	"github.com/julienschmidt/httprouter"
)

func AddBookingRoutes(router *httprouter.Router, d *Deps) {
	rl, g, h := d.Limiter, d.Guard, d.Bookings

	router.GET("/api/v1/bookings/checkout-session/:tourId", rl.Limit(g.Authenticate(h.CheckoutSession)))
	// GET wildcards go under /all/:id, clear of the checkout-session segment
	router.GET("/api/v1/bookings/all/:id/receipt", g.Authenticate(h.Receipt))

	manage := func(handle httprouter.Handle) httprouter.Handle {
		return g.Authenticate(g.RequireRoles(handle, models.RoleAdmin, models.RoleLeadGuide))
	}
	router.GET("/api/v1/bookings", manage(h.List()))
	router.POST("/api/v1/bookings", manage(h.Create()))
	router.GET("/api/v1/bookings/all/:id", manage(h.Get()))
	router.PATCH("/api/v1/bookings/:id", manage(h.Update()))
	router.DELETE("/api/v1/bookings/:id", manage(h.Delete()))

	// The provider posts here with the raw signed body; no session auth.
	router.POST("/webhook-checkout", h.Webhook)
}
