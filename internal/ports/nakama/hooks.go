package nakama

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/app/onboarding"
	"gridclaim/internal/config"
)

// AfterAuthenticateDevice onboards accounts created by device authentication.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if out == nil || !out.Created {
		return nil
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		resolved, err := userIDFromSession(out.Token)
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Failed to resolve user ID: %v", err)
			return err
		}
		userID = resolved
	}
	return onboard(ctx, logger, nk, userID, config.GetGameConfig())
}

func onboard(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, userID string, cfg config.GameConfig) error {
	logger.Info("Onboarding new user %s", userID)

	service := onboarding.NewService(NewAccountAdapter(nk), NewStarterGrantAdapter(nk, cfg.Wallet), cfg.StarterGrant, nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if result.ProfileUpdateErr != nil {
		logger.Warn("Onboard: Failed to name user %s %q: %v", userID, result.Name, result.ProfileUpdateErr)
	}
	if err != nil {
		logger.Error("Onboard: Onboarding failed for user %s: %v", userID, err)
		return err
	}
	if !result.Granted && cfg.StarterGrant > 0 {
		logger.Info("Onboard: Starter grant already credited to user %s", userID)
	}
	return nil
}

// userIDFromSession reads the uid claim of a session token Nakama just issued.
// The signature is not checked; the token never left the server.
func userIDFromSession(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", errors.New("session token has no uid claim")
	}
	return uid, nil
}
