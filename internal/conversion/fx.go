package conversion

import (
	"github.com/smallbiznis/referra/internal/conversion/repository"
	"github.com/smallbiznis/referra/internal/conversion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversion.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
