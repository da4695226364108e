package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const RequestIdHeader = "X-Request-Id"

// RequestObserver is notified once every request has been served.
type RequestObserver interface {
	ObserveRequest(route string, status int, duration time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(observer RequestObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestId := r.Header.Get(RequestIdHeader)
			if requestId == "" {
				requestId = uuid.New().String()
			}
			w.Header().Set(RequestIdHeader, requestId)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			route := routeName(r)
			log.WithFields(log.Fields{
				"request_id": requestId,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   elapsed.String(),
			}).Debug("served request")

			if observer != nil {
				observer.ObserveRequest(route, rec.status, elapsed)
			}
		})
	}
}

func routeName(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.Method + " " + r.URL.Path
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return r.Method + " " + r.URL.Path
	}
	return r.Method + " " + tpl
}
