package providers

import (
	"github.com/smallbiznis/mensalidade/internal/providers/whatsapp"
	"go.uber.org/fx"
)

// Module wires the outbound messaging providers.
var Module = fx.Module("providers",
	whatsapp.Module,
)
