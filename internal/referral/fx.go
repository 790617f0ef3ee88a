package referral

import (
	"github.com/smallbiznis/referra/internal/referral/repository"
	"github.com/smallbiznis/referra/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideClick),
	fx.Provide(service.NewService),
)
