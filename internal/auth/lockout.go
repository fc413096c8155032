package auth

import "time"

// Lockout thresholds. Five consecutive failed logins lock the account for
// two hours; any successful login clears the counter.
const (
	MaxLoginAttempts = 5
	LockDuration     = 2 * time.Hour
)

// LoginState is the pure lockout state carried on a user record. Keeping the
// transitions off the model makes the state machine testable without a
// database.
type LoginState struct {
	Attempts  int
	LockUntil *time.Time
}

// Locked reports whether the account is locked at the given instant.
func (s LoginState) Locked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// Fail returns the state after a failed login attempt. An expired lock
// restarts the counter at 1; reaching MaxLoginAttempts sets the lock window.
func (s LoginState) Fail(now time.Time) LoginState {
	if s.LockUntil != nil && !s.LockUntil.After(now) {
		return LoginState{Attempts: 1}
	}

	next := LoginState{Attempts: s.Attempts + 1, LockUntil: s.LockUntil}
	if next.Attempts >= MaxLoginAttempts && !s.Locked(now) {
		until := now.Add(LockDuration)
		next.LockUntil = &until
	}
	return next
}

// Succeed returns the cleared state after a successful login.
func (s LoginState) Succeed() LoginState {
	return LoginState{}
}
