package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/internal/interface/http/permissions"
)

func adminAuthHandler(adminToken string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := checkToken(r, adminToken); err != nil {
				status := http.StatusUnauthorized
				if _, ok := err.(unknownRouteError); ok {
					status = http.StatusInternalServerError
				}
				writeError(w, status, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type unknownRouteError string

func (e unknownRouteError) Error() string {
	return fmt.Sprintf("%s: unknown permissions required for route", string(e))
}

func checkToken(r *http.Request, adminToken string) error {
	route := routeName(r)
	if _, ok := permissions.Whitelist()[route]; ok {
		return nil
	}
	if _, ok := permissions.AllPermissionsByRoute()[route]; !ok {
		return unknownRouteError(route)
	}
	if adminToken == "" {
		return nil
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
		return fmt.Errorf("invalid admin token")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
