//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	payment "github.com/bellodavid/external-payment"
	"github.com/bellodavid/external-payment/config"
	"github.com/bellodavid/external-payment/handlers"
	"github.com/bellodavid/external-payment/server"
)

func InitializeCheckoutService() (*server.Server, error) {

	wire.Build(
		config.ProvideApplicationConfig,
		config.NewLogger,
		config.ProvideQuoteService,
		config.ProvideAccountClient,
		config.ProvideVerifier,
		config.ProvideReceiptStore,
		config.ProvideMetricsRecorder,
		payment.NewManager,
		handlers.NewCheckoutHandler,
		server.NewServer,
	)

	return &server.Server{}, nil
}
