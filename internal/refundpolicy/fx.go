package refundpolicy

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/innkeep/internal/refundpolicy/service"
)

// Module wires the refund policy service.
var Module = fx.Module("refundpolicy",
	fx.Provide(service.NewService),
)
