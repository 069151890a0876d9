package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dhawalhost/manageusers/internal/config"
	"github.com/dhawalhost/manageusers/internal/connector/auth"
	"github.com/dhawalhost/manageusers/internal/connector/azuread"
	"github.com/dhawalhost/manageusers/internal/connector/delius"
	"github.com/dhawalhost/manageusers/internal/connector/externalusers"
	"github.com/dhawalhost/manageusers/internal/connector/nomis"
	"github.com/dhawalhost/manageusers/internal/emaildomains"
	"github.com/dhawalhost/manageusers/internal/events"
	"github.com/dhawalhost/manageusers/internal/groups"
	"github.com/dhawalhost/manageusers/internal/notification"
	"github.com/dhawalhost/manageusers/internal/rbac"
	"github.com/dhawalhost/manageusers/internal/users"
	"github.com/dhawalhost/manageusers/pkg/client"
	"github.com/dhawalhost/manageusers/pkg/logger"
	"github.com/dhawalhost/manageusers/pkg/middleware"
	"github.com/dhawalhost/manageusers/pkg/observability"
	"github.com/dhawalhost/manageusers/pkg/tokencache"
)

const serviceName = "manage-users-api"

// serviceRegistration is the client-credentials registration used for every
// service-to-service call.
const serviceRegistration = "manage-users"

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Server.LogLevel, cfg.Server.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Insecure:       cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// Upstream clients. Service calls use the shared client-credentials
	// token; user calls forward the caller's own token.
	tokens := tokencache.New(log, tokencache.Registration{
		ID:           serviceRegistration,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TokenURL:     cfg.OAuth.TokenURL,
		Timeout:      cfg.Upstreams.Timeout,
	})
	serviceToken := client.ServiceToken{Cache: tokens, RegistrationID: serviceRegistration}
	upstream := func(name, baseURL string, ts client.TokenSource) *client.Client {
		return client.New(client.Config{Name: name, BaseURL: baseURL, Timeout: cfg.Upstreams.Timeout}, ts, log.Named(name), metrics)
	}
	authService := upstream("auth", cfg.Upstreams.AuthURL, serviceToken)
	nomisUser := upstream("nomis", cfg.Upstreams.NomisURL, client.CallerToken{})
	nomisService := upstream("nomis", cfg.Upstreams.NomisURL, serviceToken)
	externalUser := upstream("external-users", cfg.Upstreams.ExternalUsersURL, client.CallerToken{})
	externalService := upstream("external-users", cfg.Upstreams.ExternalUsersURL, serviceToken)
	deliusService := upstream("delius", cfg.Upstreams.DeliusURL, serviceToken)

	authConn := auth.New(authService, log)
	nomisConn := nomis.New(nomisUser, nomisService, log)
	externalConn := externalusers.New(externalUser, externalService, log)

	// Notifications
	sender, err := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		TLS:      cfg.SMTP.TLS,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.SMTP.Timeout,
	}, log)
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}
	notifier := notification.NewService(notification.Config{
		AuthBaseURI: cfg.Notification.AuthBaseURI,
		SupportLink: cfg.Notification.SupportLink,
		Templates: notification.Templates{
			InitialPassword: cfg.Notification.InitialPasswordTemplate,
			EnableUser:      cfg.Notification.EnableUserTemplate,
			VerifyEmail:     cfg.Notification.VerifyEmailTemplate,
		},
	}, authConn, sender, events.NewDispatcher(log, metrics), log)

	// Services
	userSvc := users.NewService(users.Deps{
		Prison:   nomisConn,
		External: externalConn,
		Auth:     authConn,
		Delius:   delius.New(deliusService, log),
		Azure:    azuread.New(authService, log),
		Notifier: notifier,
	}, log)
	roleSvc := rbac.NewService(externalConn, nomisConn, log)
	groupSvc := groups.NewService(externalConn, log)
	domainSvc := emaildomains.NewService(externalConn, log)

	// Inbound auth
	jwks, err := middleware.NewJWKS(ctx, cfg.OAuth.JWKSURL, &http.Client{Timeout: cfg.Upstreams.Timeout}, log)
	if err != nil {
		return fmt.Errorf("load signing keys: %w", err)
	}
	limiter := middleware.NewKeyedRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, 10*time.Minute)
	go limiter.Run(ctx, time.Minute)

	// Router
	if cfg.Server.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		observability.PrometheusMiddleware(metrics),
		middleware.SecurityHeadersMiddleware(),
	)
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.Server.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "version": version})
	})
	r.GET("/metrics", gin.WrapH(observability.PrometheusHandler(registry)))

	api := r.Group("/",
		middleware.Authenticate(middleware.AuthConfig{Keyfunc: jwks.Keyfunc, Logger: log}),
		middleware.RateLimitMiddleware(limiter),
	)
	users.NewHTTPHandler(userSvc, log).RegisterRoutes(api)
	rbac.NewHTTPHandler(roleSvc, log).RegisterRoutes(api)
	groups.NewHTTPHandler(groupSvc, log).RegisterRoutes(api)
	emaildomains.NewHTTPHandler(domainSvc, log).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
