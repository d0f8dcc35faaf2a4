package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password too weak")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotSignedIn        = errors.New("no active session")
	ErrNetwork            = errors.New("network failure")
)

// Message maps an auth error to the fixed user-facing string shown by
// clients. Unknown errors get the generic message; nothing here is intended
// for logs.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmailInUse):
		return "This email is already registered. Please sign in instead."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrWeakPassword):
		return "Password is too weak. Please use at least 6 characters."
	case errors.Is(err, ErrAccountDisabled):
		return "This account has been disabled. Please contact support."
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email. Please sign up first."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your internet connection."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
