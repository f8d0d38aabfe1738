package evolution

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/versioning"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module applies pending evolution steps at startup, after the base schema
// migrations, and then loads the tracker mode they may have changed.
var Module = fx.Module("evolution",
	fx.Provide(func(conn *gorm.DB, log *zap.Logger, genID *snowflake.Node) *Runner {
		return NewRunner(conn, log, Steps(genID))
	}),
	fx.Invoke(func(runner *Runner, conn *gorm.DB, tracker *versioning.Tracker) error {
		ctx := context.Background()
		if err := runner.Up(ctx); err != nil {
			return err
		}
		return tracker.LoadMode(ctx, conn)
	}),
)
