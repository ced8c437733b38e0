package routes

import (
	"github.com/julienschmidt/httprouter"
)

func AddViewRoutes(router *httprouter.Router, d *Deps) {
	g, h := d.Guard, d.Views

	router.GET("/", g.OptionalAuth(h.Overview))
	router.GET("/tour/:slug", g.OptionalAuth(h.Tour))
	router.GET("/login", g.OptionalAuth(h.Login))
	router.GET("/account", g.OptionalAuth(h.Account))
	router.GET("/my-tours", g.OptionalAuth(h.MyTours))
}
