package domain

import "time"

// Credential holds the secret material for one account. The identity it
// carries is stable across session renewals and keys the profile row.
type Credential struct {
	Identity     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
