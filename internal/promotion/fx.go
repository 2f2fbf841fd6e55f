package promotion

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/innkeep/internal/promotion/service"
)

// Module wires the promotion service.
var Module = fx.Module("promotion",
	fx.Provide(service.NewService),
)
