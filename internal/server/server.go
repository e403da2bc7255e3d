package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/sorteos/internal/audit"
	auditdomain "github.com/smallbiznis/sorteos/internal/audit/domain"
	"github.com/smallbiznis/sorteos/internal/auth"
	authdomain "github.com/smallbiznis/sorteos/internal/auth/domain"
	"github.com/smallbiznis/sorteos/internal/auth/session"
	"github.com/smallbiznis/sorteos/internal/authorization"
	"github.com/smallbiznis/sorteos/internal/buyer"
	"github.com/smallbiznis/sorteos/internal/checkout"
	checkoutdomain "github.com/smallbiznis/sorteos/internal/checkout/domain"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/liveevents"
	"github.com/smallbiznis/sorteos/internal/observability"
	obsmiddleware "github.com/smallbiznis/sorteos/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/sorteos/internal/observability/metrics"
	obstracing "github.com/smallbiznis/sorteos/internal/observability/tracing"
	"github.com/smallbiznis/sorteos/internal/payment"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	"github.com/smallbiznis/sorteos/internal/promoter"
	promoterdomain "github.com/smallbiznis/sorteos/internal/promoter/domain"
	"github.com/smallbiznis/sorteos/internal/providers"
	"github.com/smallbiznis/sorteos/internal/raffle"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
	"github.com/smallbiznis/sorteos/internal/ratelimit"
	"github.com/smallbiznis/sorteos/internal/reservation"
	reservationdomain "github.com/smallbiznis/sorteos/internal/reservation/domain"
	"github.com/smallbiznis/sorteos/internal/ticket"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	authorization.Module,
	auth.Module,
	buyer.Module,
	raffle.Module,
	ticket.Module,
	promoter.Module,
	reservation.Module,
	payment.Module,
	providers.Module,
	checkout.Module,
	liveevents.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.String("addr", addr), zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	authsvc        authdomain.Service
	sessions       *session.Manager
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	raffleSvc      raffledomain.Service
	ticketSvc      ticketdomain.Service
	promoterSvc    promoterdomain.Service
	reservationSvc reservationdomain.Service
	checkoutSvc    checkoutdomain.Service
	preferenceSvc  paymentdomain.PreferenceService
	paymentLogSvc  paymentdomain.LogService
	webhookSvc     paymentdomain.WebhookService
	liveTickets    *liveevents.Hub
	limiter        *ratelimit.PublicLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service `optional:"true"`
	RaffleSvc      raffledomain.Service
	TicketSvc      ticketdomain.Service
	PromoterSvc    promoterdomain.Service
	ReservationSvc reservationdomain.Service
	CheckoutSvc    checkoutdomain.Service
	PreferenceSvc  paymentdomain.PreferenceService
	PaymentLogSvc  paymentdomain.LogService
	WebhookSvc     paymentdomain.WebhookService
	LiveTickets    *liveevents.Hub           `optional:"true"`
	Limiter        *ratelimit.PublicLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		authsvc:        p.Authsvc,
		sessions:       p.Sessions,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		raffleSvc:      p.RaffleSvc,
		ticketSvc:      p.TicketSvc,
		promoterSvc:    p.PromoterSvc,
		reservationSvc: p.ReservationSvc,
		checkoutSvc:    p.CheckoutSvc,
		preferenceSvc:  p.PreferenceSvc,
		paymentLogSvc:  p.PaymentLogSvc,
		webhookSvc:     p.WebhookSvc,
		liveTickets:    p.LiveTickets,
		limiter:        p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.RateLimit(ratelimit.ScopeLogin), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Raffles --------
	api.GET("/raffles", s.ListActiveRaffles)
	api.GET("/raffles/:id", s.GetRaffleBySlug)

	// -------- Tickets --------
	api.GET("/raffles/:id/tickets", s.ListRaffleTickets)
	api.POST("/raffles/:id/tickets/random", s.RandomPickTickets)
	api.GET("/raffles/:id/tickets/stream", s.StreamTicketEvents)
	api.GET("/tickets/verify", s.VerifyTicket)

	// -------- Reservations --------
	api.POST("/reservations", s.RateLimit(ratelimit.ScopeReservation), s.CreateReservation)
	api.POST("/reservations/release", s.ReleaseReservation)
	api.GET("/reservations/status", s.GetReservationStatus)

	// -------- Checkout --------
	api.POST("/checkout", s.RateLimit(ratelimit.ScopeCheckout), s.InitiateCheckout)
	api.GET("/checkout/receipt", s.DownloadReceipt)
	api.GET("/contact", s.GetContact)

	// -------- Promoters --------
	api.GET("/promoters/:code", s.GetActivePromoter)

	// -------- Payments --------
	api.POST("/payments/preferences", s.RateLimit(ratelimit.ScopeCheckout), s.CreatePaymentPreference)
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)
	api.GET("/payments/outcome", s.LookupPaymentOutcome)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// --- global middlewares ---
	admin.Use(s.AuthRequired())

	// -------- Raffles --------
	admin.GET("/raffles", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleView), s.ListRaffles)
	admin.POST("/raffles", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleCreate), s.CreateRaffle)
	admin.GET("/raffles/:id", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleView), s.GetRaffleByID)
	admin.PATCH("/raffles/:id", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleUpdate), s.UpdateRaffle)
	admin.POST("/raffles/:id/status", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleUpdate), s.SetRaffleStatus)
	admin.DELETE("/raffles/:id", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleDelete), s.DeleteRaffle)
	admin.GET("/raffles/:id/stats", s.authorizeAction(authorization.ObjectRaffle, authorization.ActionRaffleView), s.GetRaffleStats)

	// -------- Tickets --------
	admin.GET("/raffles/:id/tickets", s.authorizeAction(authorization.ObjectTicket, authorization.ActionTicketView), s.ListAdminTickets)
	admin.GET("/raffles/:id/tickets/export", s.authorizeAction(authorization.ObjectTicket, authorization.ActionTicketExport), s.ExportTickets)
	admin.POST("/tickets/purchase", s.authorizeAction(authorization.ObjectTicket, authorization.ActionTicketPurchase), s.BulkPurchaseTickets)
	admin.POST("/tickets/release", s.authorizeAction(authorization.ObjectTicket, authorization.ActionTicketRelease), s.BulkReleaseTickets)

	// -------- Promoters --------
	admin.GET("/promoters", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterView), s.ListPromoters)
	admin.POST("/promoters", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterManage), s.CreatePromoter)
	admin.GET("/promoters/:id", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterView), s.GetPromoterByID)
	admin.PATCH("/promoters/:id", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterManage), s.UpdatePromoter)
	admin.POST("/promoters/:id/toggle", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterManage), s.TogglePromoter)
	admin.DELETE("/promoters/:id", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterManage), s.DeletePromoter)
	admin.GET("/promoters/:id/qr", s.authorizeAction(authorization.ObjectPromoter, authorization.ActionPromoterView), s.GetPromoterQRCode)

	// -------- Payment logs --------
	admin.GET("/payment-logs", s.authorizeAction(authorization.ObjectPaymentLog, authorization.ActionPaymentLogView), s.ListPaymentLogs)

	// -------- Audit logs --------
	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	// -------- Admin users --------
	admin.POST("/users", s.authorizeAction(authorization.ObjectAdminUser, authorization.ActionAdminUserCreate), s.CreateAdminUser)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, "/admin/") {
			AbortWithError(c, ErrNotFound)
			return
		}

		// static assets (vite)
		if fileExists("./public", c.Request.URL.Path) {
			c.File("./public" + c.Request.URL.Path)
			return
		}

		// SPA fallback
		if fileExists("./public", "/index.html") {
			c.File("./public/index.html")
			return
		}
		AbortWithError(c, ErrNotFound)
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." || strings.Contains(clean, "..") {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
