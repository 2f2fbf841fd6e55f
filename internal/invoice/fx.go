package invoice

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/innkeep/internal/invoice/service"
)

// Module wires the invoice service.
var Module = fx.Module("invoice",
	fx.Provide(service.NewService),
)
