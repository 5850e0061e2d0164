package ports

import "context"

// AccountPort updates account profiles.
type AccountPort interface {
	// UpdateProfile sets the username and display name of the given user.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}

// StarterGrantPort credits the starter grant at most once per user.
type StarterGrantPort interface {
	// GrantOnce returns granted=false when the user already received the grant.
	GrantOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error)
}
