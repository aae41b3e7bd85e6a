package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-authz/pkg/authz"
	"github.com/doodlesbykumbi/tenant-authz/pkg/config"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/middleware"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/tenant-authz/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/tenant-authz/pkg/usergroup"
)

type Server struct {
	Router *mux.Router
	Config *config.Config

	// Stores
	MembershipStore store.MembershipStore
	HealthStore     store.HealthStore

	// Services
	Evaluator  *authz.Evaluator
	UserGroups *usergroup.Service

	TokenMiddleware *middleware.TokenAuthenticator

	srv *http.Server
}

// NewServer wires the gorm-backed stores for db.
func NewServer(cfg *config.Config, db *gorm.DB, host string, port string) *Server {
	membership := gormstore.NewMembershipStore(db).WithTimeout(cfg.StoreTimeout)
	return New(cfg, membership, gormstore.NewHealthStore(db), host, port)
}

// New builds a server over arbitrary store implementations.
func New(cfg *config.Config, membership store.MembershipStore, health store.HealthStore, host string, port string) *Server {
	router := mux.NewRouter().UseEncodedPath()

	s := &Server{
		Router:          router,
		Config:          cfg,
		MembershipStore: membership,
		HealthStore:     health,
		Evaluator: authz.NewEvaluator(membership,
			authz.WithTenantHeader(cfg.TenantHeader),
			authz.WithEmailClaim(cfg.EmailClaim),
		),
		UserGroups:      usergroup.NewService(membership),
		TokenMiddleware: middleware.NewTokenAuthenticator(cfg.SigningSecret),
	}

	s.srv = &http.Server{
		Handler:      s.Handler(),
		Addr:         host + ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return s
}

// Handler returns the router wrapped with access logging and, when origins
// are configured, CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router
	if len(s.Config.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.Config.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type", s.Config.TenantHeader}),
		)(h)
	}
	return handlers.CombinedLoggingHandler(log.StandardLogger().Out, h)
}

// RequireAdmin wraps h with token verification and the tenant-admin gate.
func (s *Server) RequireAdmin(h http.Handler) http.Handler {
	return s.TokenMiddleware.Middleware(middleware.RequireOrganizationAdmin(s.Evaluator)(h))
}

// RequireGlobalAdmin wraps h with token verification and the global admin
// role gate.
func (s *Server) RequireGlobalAdmin(h http.Handler) http.Handler {
	return s.TokenMiddleware.Middleware(middleware.RequireRole(s.Config.RoleClaim, s.Config.GlobalAdminRole)(h))
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

func (s *Server) Start() error {
	log.WithField("addr", s.srv.Addr).Info("listening")
	return s.srv.ListenAndServe()
}

// StartWithListener serves on an already bound listener.
func (s *Server) StartWithListener(l net.Listener) error {
	log.WithField("addr", l.Addr().String()).Info("listening")
	return s.srv.Serve(l)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
