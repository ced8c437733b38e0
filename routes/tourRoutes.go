package routes

import (
	"wayfare/models"

	"github.com/julienschmidt/httprouter"
)

func AddTourRoutes(router *httprouter.Router, d *Deps) {
	rl, g, h := d.Limiter, d.Guard, d.Tours

	list := h.List()
	router.GET("/api/v1/tours", rl.Limit(list))
	router.GET("/api/v1/tours/top-5-cheap", rl.Limit(h.AliasTopTours(list)))
	router.GET("/api/v1/tours/stats", rl.Limit(h.Stats))
	router.GET("/api/v1/tours/monthly-plan/:year",
		g.Authenticate(g.RequireRoles(h.MonthlyPlan, models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide)))

	router.GET("/api/v1/tours/tours-within/:distance/center/:latlng/unit/:unit", rl.Limit(h.ToursWithin))
	router.GET("/api/v1/tours/distances/:latlng/:unit", rl.Limit(h.Distances))

	// the single fetch lives under its own segment; httprouter refuses a
	// wildcard beside the static computed routes above
	router.GET("/api/v1/tours/all/:id", rl.Limit(h.Get()))

	manage := func(handle httprouter.Handle) httprouter.Handle {
		return g.Authenticate(g.RequireRoles(handle, models.RoleAdmin, models.RoleLeadGuide))
	}
	router.POST("/api/v1/tours", manage(h.Create()))
	router.PATCH("/api/v1/tours/:id", manage(h.Update()))
	router.DELETE("/api/v1/tours/:id", manage(h.Delete()))
	router.PATCH("/api/v1/tours/:id/images", manage(h.UploadImages))
}
