package installment

import (
	"github.com/smallbiznis/mensalidade/internal/installment/repository"
	"github.com/smallbiznis/mensalidade/internal/installment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("installment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
