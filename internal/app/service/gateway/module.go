package gateway

import (
	"github.com/trainwise/backend/pkg/config"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) *Registry {
		return NewRegistry(NewEsewa(cfg), NewKhalti(cfg), NewDodo(cfg))
	}),
)
