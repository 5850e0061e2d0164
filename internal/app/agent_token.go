package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

var ErrInvalidToken = errors.New("invalid agent token")

// AgentTokenIssuer is the issuer every gridclaim process signs and expects.
const AgentTokenIssuer = "gridclaim"

// AgentTokenService issues and verifies the tokens remote agents present when
// they connect to play for a participant.
type AgentTokenService struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// AgentClaims is what a verified token binds: one participant in one game.
type AgentClaims struct {
	ParticipantID string
	GameID        string
	ExpiresAt     time.Time
}

func NewAgentTokenService(secret, issuer string, ttl time.Duration) *AgentTokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AgentTokenService{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

func (s *AgentTokenService) GenerateToken(participantID, gameID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("agent token service is nil")
	}
	if participantID == "" {
		return "", fmt.Errorf("participant is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("agent token config is incomplete")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": participantID,
		"gid": gameID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"jti": fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken checks signature, issuer and expiry and returns the bound claims.
func (s *AgentTokenService) VerifyToken(tokenString string) (AgentClaims, error) {
	if s == nil || s.secret == "" {
		return AgentClaims{}, fmt.Errorf("%w: verifier not configured", ErrInvalidToken)
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return AgentClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return AgentClaims{}, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return AgentClaims{}, fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return AgentClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	gid, _ := claims["gid"].(string)
	exp, _ := claims["exp"].(float64)
	return AgentClaims{
		ParticipantID: sub,
		GameID:        gid,
		ExpiresAt:     time.Unix(int64(exp), 0),
	}, nil
}
