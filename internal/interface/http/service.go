package httpservice

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/internal/config"
	"github.com/wrap-near/guest-relayer/internal/core/application"
	interfaces "github.com/wrap-near/guest-relayer/internal/interface"
	"github.com/wrap-near/guest-relayer/internal/interface/http/handlers"
	"github.com/wrap-near/guest-relayer/internal/interface/http/middleware"
	"github.com/wrap-near/guest-relayer/internal/interface/http/permissions"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	readHeaderTimeout = 10 * time.Second
	// add-guest waits for 2 transactions to be final.
	writeTimeout    = 2 * time.Minute
	idleTimeout     = 2 * time.Minute
	shutdownTimeout = 30 * time.Second
)

type service struct {
	config    Config
	appConfig *config.Config
	server    *http.Server
}

func NewService(
	svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	if !svcConfig.insecure() {
		if err := generateOperatorTLSKeyCert(
			svcConfig.tlsDatadir(), svcConfig.TLSExtraIPs, svcConfig.TLSExtraDomains,
		); err != nil {
			return nil, err
		}
		log.Debugf("generated TLS key pair at path: %s", svcConfig.tlsDatadir())
	}

	return &service{svcConfig, appConfig, nil}, nil
}

func (s *service) Start() error {
	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return err
	}

	if s.appConfig.Bootstrap {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := appSvc.Bootstrap(ctx); err != nil {
			return fmt.Errorf("failed to bootstrap contract: %s", err)
		}
		log.Info("bootstrapped contract")
	}

	if err := appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	log.Info("started app service")

	tlsConfig, err := s.config.tlsConfig()
	if err != nil {
		return err
	}
	if err := s.newServer(appSvc, tlsConfig); err != nil {
		return err
	}

	if s.config.insecure() {
		// nolint:all
		go s.server.ListenAndServe()
	} else {
		// nolint:all
		go s.server.ListenAndServeTLS("", "")
	}
	log.Infof("started listening at %s", s.config.address())

	return nil
}

func (s *service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to gracefully shutdown http server")
		}
		log.Info("stopped http server")
	}

	appSvc, _ := s.appConfig.AppService()
	if appSvc != nil {
		appSvc.Stop()
		log.Info("stopped app service")
	}
}

func (s *service) newServer(appSvc application.Service, tlsConfig *tls.Config) error {
	metrics, err := NewMetrics()
	if err != nil {
		return err
	}

	handler := NewRouter(appSvc, metrics, s.config.AdminToken)
	if s.config.insecure() {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	s.server = &http.Server{
		Addr:              s.config.address(),
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return nil
}

// NewRouter returns the relayer's http handler with every route mounted
// behind the middleware chain and CORS.
func NewRouter(
	appSvc application.Service, metrics *Metrics, adminToken string,
) http.Handler {
	h := handlers.NewHandler(appSvc, metrics)

	router := mux.NewRouter()
	router.Use(middleware.Middlewares(adminToken, metrics)...)

	routes := map[permissions.Route]http.HandlerFunc{
		permissions.Hello:            h.Hello,
		permissions.Info:             h.GetInfo,
		permissions.HasAccessKey:     h.HasAccessKey,
		permissions.StorageDeposit:   h.StorageDeposit,
		permissions.AddKey:           h.AddKey,
		permissions.DeleteAccessKeys: h.DeleteAccessKeys,
		permissions.AddGuest:         h.AddGuest,
		permissions.GetGuest:         h.GetGuest,
	}
	for route, handlerFunc := range routes {
		router.HandleFunc(route.Path, handlerFunc).Methods(route.Method)
	}
	router.Handle(permissions.Metrics.Path, metrics.Handler()).
		Methods(permissions.Metrics.Method)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPatch, http.MethodPost, http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(router)
}
