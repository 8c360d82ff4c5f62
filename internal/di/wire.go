//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/sandeepkv93/admin-trust-core/internal/app"
	"github.com/sandeepkv93/admin-trust-core/internal/config"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*app.App, func(), error) {
	wire.Build(HTTPSet)
	return nil, nil, nil
}

func InitializeCore(ctx context.Context, cfg *config.Config) (*Core, func(), error) {
	wire.Build(StoreSet)
	return nil, nil, nil
}
