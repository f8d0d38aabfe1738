package versioning

import "go.uber.org/fx"

var Module = fx.Module("versioning",
	fx.Provide(NewTracker),
)
