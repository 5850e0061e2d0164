package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/config"
)

// InitModule wires RPCs, the match handler and the onboarding hook for the
// Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if path := env["gridclaim_config"]; path != "" {
			if err := config.LoadGameConfig(path); err != nil {
				logger.Warn("InitModule: Could not load game config %s: %v", path, err)
			}
		}
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameGridclaim, NewMatch); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	logger.Info("Gridclaim Go module loaded.")
	return nil
}
