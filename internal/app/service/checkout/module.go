package checkout

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(
		NewService,
		func(s *Service) Engine { return s },
	),
)
