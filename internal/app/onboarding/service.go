// Package onboarding prepares new accounts for play: a generated name that
// is also a valid participant name and a starter grant to pay buy-ins with.
package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"gridclaim/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// Granted is false when the account had already received its grant.
	Granted bool
	// Name is the generated username.
	Name string
}

type Service struct {
	accounts ports.AccountPort
	grants   ports.StarterGrantPort
	amount   int64
	rng      *rand.Rand
}

// NewService constructs an onboarding service. rng may be nil to use a
// time-seeded default; a non-positive amount skips the grant.
func NewService(accounts ports.AccountPort, grants ports.StarterGrantPort, amount int64, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		grants:   grants,
		amount:   amount,
		rng:      rng,
	}
}

// OnboardNewUser names a newly created account and credits the starter grant.
// Only a failed grant is an error.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.grants == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{Name: s.generateFriendlyName()}
	if err := s.accounts.UpdateProfile(ctx, userID, result.Name, result.Name); err != nil {
		// Profile updates are best-effort; the grant is what lets the user play.
		result.ProfileUpdateErr = err
	}
	if s.amount <= 0 {
		return result, nil
	}

	granted, err := s.grants.GrantOnce(ctx, userID, s.amount, map[string]interface{}{
		"reason": "starter_grant",
	})
	if err != nil {
		return result, fmt.Errorf("failed to credit starter grant: %w", err)
	}
	result.Granted = granted
	return result, nil
}

// generateFriendlyName returns names of at most 16 bytes so that they pass
// participant name validation unchanged.
func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Squid", "Ink", "Octo", "Cuttle", "Urchin", "Eel", "Crab", "Shrimp", "Ray", "Kraken"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(900) + 100

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
