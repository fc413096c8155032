package models

import "time"

// Role identifies the authorization level of a user account.
type Role string

// Role constants define user authorization levels.
const (
	// RoleUser is the default role for registered contributors.
	RoleUser Role = "user"
	// RoleAdmin grants access to all contributions and admin operations.
	RoleAdmin Role = "admin"
)

// User represents a contributor account stored in the database.
// Password is empty for accounts created through federated login only.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	FullName string `gorm:"type:text;not null"`            // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Lowercased email address.
	Password string `gorm:"type:text"`                      // Bcrypt hash, empty for federated-only accounts.

	GoogleID       *string `gorm:"type:text;uniqueIndex"` // Federated identity id, unique when present.
	ProfilePicture string  `gorm:"type:text"`             // Avatar URL from the identity provider.

	Role            Role `gorm:"type:text;not null;default:user"` // Authorization role.
	IsEmailVerified bool `gorm:"not null;default:false"`          // Set for federated signups.
	Active          bool `gorm:"not null;default:true"`           // Whether the user can sign in.

	LastLogin     *time.Time `gorm:"type:timestamp"`     // Last successful login.
	LoginAttempts int        `gorm:"not null;default:0"` // Consecutive failed login count.
	LockUntil     *time.Time `gorm:"type:timestamp"`     // Account lock expiry, nil when unlocked.

	Contributions []Contribution `gorm:"foreignKey:UserID"` // Related contributions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
