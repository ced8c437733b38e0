package routes

import (
	"testing"

	"github.com/julienschmidt/httprouter"

	"wayfare/auth"
	"wayfare/bookings"
	"wayfare/middleware"
	"wayfare/ratelim"
	"wayfare/reviews"
	"wayfare/tours"
	"wayfare/users"
	"wayfare/views"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	viewHandlers, err := views.New(nil, nil, nil, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	return &Deps{
		Limiter:  ratelim.NewRateLimiter(),
		Guard:    &middleware.Guard{},
		Auth:     &auth.Handlers{},
		Tours:    &tours.Handlers{},
		Reviews:  &reviews.Handlers{},
		Users:    &users.Handlers{},
		Bookings: &bookings.Handlers{},
		Views:    viewHandlers,
	}
}

// httprouter rejects conflicting registrations with a panic, so the route
// table has to build cleanly before anything else about the server matters.
func TestRouteTableRegistersCleanly(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("route registration panicked: %v", r)
		}
	}()
	RoutesWrapper(httprouter.New(), testDeps(t))
}

func TestRouteTableResolvesEveryOperation(t *testing.T) {
	router := httprouter.New()
	RoutesWrapper(router, testDeps(t))

	cases := []struct {
		method, path string
	}{
		{"GET", "/api/v1/tours"},
		{"POST", "/api/v1/tours"},
		{"GET", "/api/v1/tours/top-5-cheap"},
		{"GET", "/api/v1/tours/stats"},
		{"GET", "/api/v1/tours/monthly-plan/2026"},
		{"GET", "/api/v1/tours/tours-within/200/center/34.1,-118.1/unit/mi"},
		{"GET", "/api/v1/tours/distances/34.1,-118.1/km"},
		{"GET", "/api/v1/tours/all/t123"},
		{"GET", "/api/v1/tours/all/t123/reviews"},
		{"POST", "/api/v1/tours/all/t123/reviews"},
		{"PATCH", "/api/v1/tours/t123"},
		{"PATCH", "/api/v1/tours/t123/images"},
		{"DELETE", "/api/v1/tours/t123"},

		{"GET", "/api/v1/reviews"},
		{"POST", "/api/v1/reviews"},
		{"GET", "/api/v1/reviews/r123"},
		{"PATCH", "/api/v1/reviews/r123"},
		{"DELETE", "/api/v1/reviews/r123"},

		{"POST", "/api/v1/users/signup"},
		{"POST", "/api/v1/users/login"},
		{"GET", "/api/v1/users/logout"},
		{"POST", "/api/v1/users/forgot-password"},
		{"PATCH", "/api/v1/users/reset-password/sometoken"},
		{"PATCH", "/api/v1/users/update-password"},
		{"GET", "/api/v1/users/me"},
		{"PATCH", "/api/v1/users/update-me"},
		{"DELETE", "/api/v1/users/delete-me"},
		{"GET", "/api/v1/users"},
		{"POST", "/api/v1/users"},
		{"GET", "/api/v1/users/all/u123"},
		{"PATCH", "/api/v1/users/all/u123"},
		{"DELETE", "/api/v1/users/all/u123"},

		{"GET", "/api/v1/bookings"},
		{"POST", "/api/v1/bookings"},
		{"GET", "/api/v1/bookings/checkout-session/t123"},
		{"GET", "/api/v1/bookings/all/b123"},
		{"GET", "/api/v1/bookings/all/b123/receipt"},
		{"PATCH", "/api/v1/bookings/b123"},
		{"DELETE", "/api/v1/bookings/b123"},
		{"POST", "/webhook-checkout"},

		{"GET", "/"},
		{"GET", "/tour/the-forest-hiker"},
		{"GET", "/login"},
		{"GET", "/account"},
		{"GET", "/my-tours"},
		{"GET", "/health"},
	}
	for _, c := range cases {
		if handle, _, _ := router.Lookup(c.method, c.path); handle == nil {
			t.Errorf("%s %s did not resolve", c.method, c.path)
		}
	}
}

func TestRouteParamsSurvivePrefixing(t *testing.T) {
	router := httprouter.New()
	RoutesWrapper(router, testDeps(t))

	_, ps, _ := router.Lookup("GET", "/api/v1/tours/all/t777")
	if got := ps.ByName("id"); got != "t777" {
		t.Errorf("tour id param = %q, want t777", got)
	}

	_, ps, _ = router.Lookup("GET", "/api/v1/tours/tours-within/200/center/34.1,-118.1/unit/mi")
	if got := ps.ByName("distance"); got != "200" {
		t.Errorf("distance param = %q, want 200", got)
	}
	if got := ps.ByName("unit"); got != "mi" {
		t.Errorf("unit param = %q, want mi", got)
	}
}
