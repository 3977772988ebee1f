// Package web assembles the portal's HTTP API: services, middleware and
// controllers mounted under /api, and the server lifecycle.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/util/common"
	"github.com/ytschitwan/portal/util/random"
	"github.com/ytschitwan/portal/web/controller"
	"github.com/ytschitwan/portal/web/entity"
	"github.com/ytschitwan/portal/web/job"
	"github.com/ytschitwan/portal/web/middleware"
	"github.com/ytschitwan/portal/web/network"
	"github.com/ytschitwan/portal/web/notify"
	"github.com/ytschitwan/portal/web/service"
	"gorm.io/gorm"
)

const basePath = "/api"

// Server owns the HTTP listener. The database handle is injected and its
// lifecycle belongs to the caller.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	db *gorm.DB

	authService         *service.AuthService
	eventService        *service.EventService
	registrationService *service.RegistrationService
	contactService      *service.ContactService
	dashboardService    *service.DashboardService
	userAdminService    *service.UserAdminService
	auditService        *service.AuditLogService

	mailer       *notify.Mailer
	redisCounter *middleware.RedisCounter
	cron         *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires every service onto db.
func NewServer(db *gorm.DB) *Server {
	secret := config.GetJWTSecret()
	if secret == "" {
		secret = random.Seq(48)
		logger.Warning("PORTAL_JWT_SECRET is not set, using an ephemeral secret; tokens will not survive a restart")
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := service.NewEventService(db)
	s := &Server{
		db:                  db,
		authService:         service.NewAuthService(db, secret, config.GetTokenTTL()),
		eventService:        events,
		registrationService: service.NewRegistrationService(db, events),
		contactService:      service.NewContactService(db, config.IsContactDegradedEnabled()),
		dashboardService:    service.NewDashboardService(db),
		userAdminService:    service.NewUserAdminService(db),
		auditService:        service.NewAuditLogService(db),
		ctx:                 ctx,
		cancel:              cancel,
	}

	if mailer := notify.NewMailer(config.GetSMTPConfig()); mailer != nil {
		s.mailer = mailer
		s.contactService.WithNotifier(mailer)
		s.registrationService.WithNotifier(mailer)
	}
	return s
}

// rateLimitConfig uses Redis counters when PORTAL_REDIS_ADDR is set and
// reachable, per-process counters otherwise.
func (s *Server) rateLimitConfig() middleware.RateLimitConfig {
	cfg := middleware.DefaultRateLimitConfig(config.GetRateLimit())
	addr := config.GetRedisAddr()
	if addr == "" || cfg.RequestsPerMinute <= 0 {
		return cfg
	}
	pingCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	counter, err := middleware.NewRedisCounter(pingCtx, addr, config.GetRedisPassword(), config.GetRedisDB())
	if err != nil {
		logger.Warning("falling back to in-process rate limiting:", err)
		return cfg
	}
	s.redisCounter = counter
	cfg.Counter = counter
	return cfg
}

func (s *Server) startTask() {
	_, err := s.cron.AddJob("@every 10m", job.NewReconcileCountsJob(s.eventService))
	if err != nil {
		logger.Warning("schedule reconcile job:", err)
	}
	_, err = s.cron.AddJob("@daily", job.NewAuditCleanupJob(s.auditService, config.GetAuditRetentionDays()))
	if err != nil {
		logger.Warning("schedule audit cleanup job:", err)
	}
	// Reconcile once at startup in case the process died mid-refresh.
	go job.NewReconcileCountsJob(s.eventService).Run()

	if s.mailer != nil {
		go s.mailer.Run(s.ctx)
	}
}

func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(config.GetTrustedProxies()); err != nil {
		return nil, err
	}
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(config.IsDebug()),
		gzip.Gzip(gzip.DefaultCompression),
	)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.GetAllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	engine.Use(cors.New(corsConfig))

	engine.Use(middleware.Timeout(config.GetRequestTimeout()))

	authRequired := middleware.AuthRequired(s.authService)
	access := controller.Access{
		Token: []gin.HandlerFunc{authRequired},
		Admin: []gin.HandlerFunc{
			authRequired,
			middleware.RequireRole(model.RoleAdmin),
			middleware.AuditMiddleware(s.auditService),
		},
	}
	limit := middleware.RateLimitMiddleware(s.rateLimitConfig())

	api := engine.Group(basePath)
	controller.NewHealthController(api, s.db)
	controller.NewAuthController(api, s.authService, access, limit)
	controller.NewEventController(api, s.eventService, s.registrationService, access, limit)
	controller.NewRegistrationController(api, s.registrationService, access)
	controller.NewContactController(api, s.contactService, access, limit)
	controller.NewDashboardController(api, s.dashboardService, access)
	controller.NewAdminController(api, s.userAdminService, s.auditService, access)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "API endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, entity.ErrorMsg{Success: false, Message: "Method not allowed"})
	})

	return engine, nil
}

// Start begins serving in the background. With PORTAL_CERT_FILE and
// PORTAL_KEY_FILE set it serves HTTPS and redirects plain HTTP on the same port.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	certFile, keyFile := config.GetCertFile(), config.GetKeyFile()
	if certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			_ = listener.Close()
			return common.NewErrorf("load certificate %s: %v", certFile, err)
		}
		listener = network.NewAutoHttpsListener(listener)
		listener = tls.NewListener(listener, &tls.Config{Certificates: []tls.Certificate{cert}})
		logger.Info("Web server running HTTPS on", listener.Addr())
	} else {
		logger.Info("Web server running HTTP on", listener.Addr())
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()

	if n, err := s.userAdminService.CountAdmins(s.ctx); err == nil && n == 0 {
		logger.Warning("no admin account exists; create one with `portal user create-admin`")
	}
	return nil
}

// Stop shuts the server down, waiting up to ten seconds for in-flight requests.
func (s *Server) Stop() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer s.cancel()

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	var err1, err2, err3 error
	if s.httpServer != nil {
		err1 = s.httpServer.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			err2 = err
		}
	}
	if s.redisCounter != nil {
		err3 = s.redisCounter.Close()
	}
	return common.Combine(err1, err2, err3)
}

// GetCtx returns the server's context, cancelled by Stop.
func (s *Server) GetCtx() context.Context { return s.ctx }
