package dto

import "time"

// SignUpRequest covers both patient and doctor registration; the route
// determines the role, never the payload.
type SignUpRequest struct {
	FullName        string  `json:"full_name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Phone           *string `json:"phone,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	ExperienceYears *int    `json:"experience_years,omitempty"`
}

// SignInRequest carries credentials.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse mirrors an issued session.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileResponse mirrors a profile.
type ProfileResponse struct {
	ID              string  `json:"id"`
	UserType        string  `json:"user_type"`
	FullName        string  `json:"full_name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	ExperienceYears *int    `json:"experience_years,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
}
