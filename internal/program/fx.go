package program

import (
	"github.com/smallbiznis/referra/internal/program/repository"
	"github.com/smallbiznis/referra/internal/program/service"
	"go.uber.org/fx"
)

var Module = fx.Module("program.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideEnrollment),
	fx.Provide(service.NewService),
)
