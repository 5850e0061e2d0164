package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/app"
	"gridclaim/internal/config"
)

// MatchAPI is the part of runtime.NakamaModule the RPCs need.
type MatchAPI interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

// FindGameResponse is the payload returned to clients looking for a game.
type FindGameResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcFindGame, rpcFindGame); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcGameState, rpcGameState); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcAgentToken, rpcAgentToken)
}

func rpcFindGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return findGame(ctx, logger, nk, userID)
}

// findGame joins the caller to a forming game with open registrations or
// creates one opened by the caller.
func findGame(ctx context.Context, logger runtime.Logger, nk MatchAPI, userID string) (string, error) {
	query := fmt.Sprintf("+label.%s:%s +label.%s:forming +label.%s:T", labelKeyGame, labelGame, labelKeyPhase, labelKeyOpen)

	matches, err := nk.MatchList(ctx, 10, true, "", nil, nil, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", runtime.NewError("failed to list games", codeInternal)
	}

	resp := FindGameResponse{}
	if len(matches) > 0 {
		resp.MatchID = matches[0].GetMatchId()
	} else {
		params := map[string]interface{}{}
		if userID != "" {
			params["opener"] = userID
		}
		matchID, err := nk.MatchCreate(ctx, MatchNameGridclaim, params)
		if err != nil {
			logger.Error("MatchCreate error: %v", err)
			return "", runtime.NewError("failed to create game", codeInternal)
		}
		resp.MatchID = matchID
		resp.IsNew = true
		logger.Info("findGame [User:%s]: Created new game %s", userID, matchID)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	return string(b), nil
}

func rpcGameState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return gameState(ctx, logger, nk, payload)
}

// gameState returns the GameView of a match. Payload: {"match_id": "..."}.
func gameState(ctx context.Context, logger runtime.Logger, nk MatchAPI, payload string) (string, error) {
	var req struct {
		MatchID string `json:"match_id"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MatchID == "" {
		return "", runtime.NewError("match_id required", codeInvalidArgument)
	}
	view, err := nk.MatchSignal(ctx, req.MatchID, signalState)
	if err != nil {
		logger.Warn("gameState: signal %s failed: %v", req.MatchID, err)
		return "", runtime.NewError("game not found", codeNotFound)
	}
	if view == "" {
		return "", runtime.NewError("game not found", codeNotFound)
	}
	return view, nil
}

func rpcAgentToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	cfg := config.GetGameConfig()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if withEnv, err := cfg.ApplyEnv(env); err == nil {
			cfg = withEnv
		}
	}
	if cfg.AgentTokenSecret == "" {
		logger.Error("rpcAgentToken: %s is not configured", config.EnvTokenSecret)
		return "", runtime.NewError("agent tokens are disabled", codeFailedPrecondition)
	}
	tokens := app.NewAgentTokenService(cfg.AgentTokenSecret, app.AgentTokenIssuer, time.Duration(cfg.AgentTokenTTLSeconds)*time.Second)
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return agentToken(tokens, userID, payload)
}

// agentToken issues a token binding the caller to a game. Payload: {"game_id": "..."}.
func agentToken(tokens *app.AgentTokenService, userID, payload string) (string, error) {
	if userID == "" {
		return "", runtime.NewError("authentication required", codePermissionDenied)
	}
	var req struct {
		GameID string `json:"game_id"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.GameID == "" {
		return "", runtime.NewError("game_id required", codeInvalidArgument)
	}
	token, err := tokens.GenerateToken(userID, req.GameID)
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	b, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	return string(b), nil
}
