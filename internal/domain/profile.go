package domain

import "time"

// UserType distinguishes the two account roles. A profile's role is fixed
// at sign-up and never changes afterwards.
type UserType string

const (
	UserTypePatient UserType = "patient"
	UserTypeDoctor  UserType = "doctor"
)

// Valid reports whether the role is one of the known user types.
func (t UserType) Valid() bool {
	return t == UserTypePatient || t == UserTypeDoctor
}

// Profile is the application-level user record carrying role and display data.
type Profile struct {
	ID              string
	UserType        UserType
	FullName        string
	Email           string
	Phone           *string
	Specialization  *string
	ExperienceYears *int
	AvatarURL       *string
	CreatedAt       time.Time
}
