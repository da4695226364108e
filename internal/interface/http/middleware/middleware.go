package middleware

import "github.com/gorilla/mux"

// Middlewares returns the chain applied to every route, outermost first.
func Middlewares(adminToken string, observer RequestObserver) []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{
		requestLogger(observer),
		adminAuthHandler(adminToken),
	}
}
