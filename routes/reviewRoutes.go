package routes

import (
	"wayfare/models"

	"github.com/julienschmidt/httprouter"
)

func AddReviewRoutes(router *httprouter.Router, d *Deps) {
	rl, g, h := d.Limiter, d.Guard, d.Reviews

	write := func(handle httprouter.Handle, roles ...string) httprouter.Handle {
		return g.Authenticate(g.RequireRoles(handle, roles...))
	}

	router.GET("/api/v1/reviews", rl.Limit(g.Authenticate(h.List())))
	router.POST("/api/v1/reviews", rl.Limit(write(h.Create(), models.RoleUser)))
	router.GET("/api/v1/reviews/:id", g.Authenticate(h.Get()))
	router.PATCH("/api/v1/reviews/:id", write(h.Update(), models.RoleUser, models.RoleAdmin))
	router.DELETE("/api/v1/reviews/:id", write(h.Delete(), models.RoleUser, models.RoleAdmin))

	// Nested under a tour: list that tour's reviews, create with the tour
	// reference taken from the path. Same /all/:id prefix as the tour fetch.
	router.GET("/api/v1/tours/all/:id/reviews", rl.Limit(g.Authenticate(h.List())))
	router.POST("/api/v1/tours/all/:id/reviews", rl.Limit(write(h.Create(), models.RoleUser)))
}
