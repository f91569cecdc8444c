package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bellodavid/external-payment/config"
	"github.com/bellodavid/external-payment/handlers"
)

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	Checkout handlers.CheckoutHandler
}

func NewServer(cfg *config.Config, checkout handlers.CheckoutHandler) *Server {
	return &Server{
		echo:     echo.New(),
		config:   cfg,
		Checkout: checkout,
	}
}

// Start registers middlewares and routes and begins listening on the
// provided address.
func (s *Server) Start(address string) error {
	s.registerMiddlewares()
	s.registerRoutes()
	return s.echo.Start(address)
}

// Run starts the server in a goroutine and blocks until an interrupt or
// SIGTERM arrives, then shuts down with a 5 second grace period.
func (s *Server) Run(address string) error {

	go func() {
		if err := s.Start(address); err != nil {
			s.echo.Logger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

func (s *Server) registerMiddlewares() {
	s.echo.Use(middleware.Recover())
}

func (s *Server) registerRoutes() {

	s.echo.POST("/api/checkout/sessions", s.Checkout.CreateSession)
	s.echo.GET("/api/checkout/sessions/:id", s.Checkout.GetSession)
	s.echo.PATCH("/api/checkout/sessions/:id/contact", s.Checkout.UpdateContact)
	s.echo.POST("/api/checkout/sessions/:id/details", s.Checkout.SubmitDetails)
	s.echo.POST("/api/checkout/sessions/:id/verify", s.Checkout.VerifyPayment)
	s.echo.POST("/api/checkout/sessions/:id/reset", s.Checkout.ResetSession)
	s.echo.DELETE("/api/checkout/sessions/:id", s.Checkout.CloseSession)
	s.echo.GET("/api/checkout/sessions/:id/qr", s.Checkout.WalletQR)

	if s.config.Metrics.Enabled {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}
