package routes

import (
	"wayfare/models"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, d *Deps) {
	rl, g := d.Limiter, d.Guard

	router.POST("/api/v1/users/signup", rl.Limit(d.Auth.Signup))
	router.POST("/api/v1/users/login", rl.Limit(d.Auth.Login))
	router.GET("/api/v1/users/logout", d.Auth.Logout)

	router.POST("/api/v1/users/forgot-password", rl.Limit(d.Auth.ForgotPassword))
	router.PATCH("/api/v1/users/reset-password/:token", rl.Limit(d.Auth.ResetPassword))
	router.PATCH("/api/v1/users/update-password", g.Authenticate(d.Auth.UpdatePassword))
}

func AddUserRoutes(router *httprouter.Router, d *Deps) {
	g, h := d.Guard, d.Users

	router.GET("/api/v1/users/me", g.Authenticate(h.Me))
	router.PATCH("/api/v1/users/update-me", g.Authenticate(h.UpdateMe))
	router.DELETE("/api/v1/users/delete-me", g.Authenticate(h.DeleteMe))

	admin := func(handle httprouter.Handle) httprouter.Handle {
		return g.Authenticate(g.RequireRoles(handle, models.RoleAdmin))
	}
	router.GET("/api/v1/users", admin(h.List()))
	router.POST("/api/v1/users", admin(h.Create))
	// admin CRUD sits under /all/:id; the self-service routes above are
	// static siblings a wildcard cannot coexist with
	router.GET("/api/v1/users/all/:id", admin(h.Get()))
	router.PATCH("/api/v1/users/all/:id", admin(h.Update()))
	router.DELETE("/api/v1/users/all/:id", admin(h.Delete()))
}
