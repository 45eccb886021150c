//go:build wireinject
// +build wireinject

package main

import (
	"market-stats/internal/app"

	"github.com/google/wire"
)

// InitializeApp builds App (Config + Runner and everything behind it) via Wire.
// Caller must call the returned cleanup when done.
func InitializeApp() (*App, func(), error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideLogger,
		app.ProvideStore,
		app.ProvideProvider,
		app.ProvideRecorder,
		app.ProvideLoader,
		app.NewRunner,
		wire.Struct(new(App), "Config", "Runner"),
	)
	return nil, nil, nil
}
