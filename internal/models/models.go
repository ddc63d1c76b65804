package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abarak-biu/tf-encrypted/internal/tensor"
)

// AdminUserRole enumerates allowed roles.
type AdminUserRole string

const (
	RoleSuperAdmin AdminUserRole = "SUPERADMIN"
	RoleAdmin      AdminUserRole = "ADMIN"
	RoleAuditor    AdminUserRole = "AUDITOR"
)

// UserStatus enumerates user account states.
type UserStatus string

const (
	StatusActive   UserStatus = "Active"
	StatusInactive UserStatus = "Inactive"
	StatusLocked   UserStatus = "Locked"
)

// AdminUser is an operator account.
type AdminUser struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Username     string        `gorm:"uniqueIndex;not null"`
	Email        string        `gorm:"uniqueIndex;not null"`
	PasswordHash string        `gorm:"not null"`
	Role         AdminUserRole `gorm:"not null"`
	Status       UserStatus    `gorm:"not null;default:'Active'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TensorSpec is a named, reusable generation preset: the parties agree on a
// tensor geometry and bounds once, then request generations against it by
// name or ID.
type TensorSpec struct {
	ID     uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Name   string       `gorm:"uniqueIndex;not null"`
	Shape  string       `gorm:"not null"` // JSON-encoded dimension list, e.g. "[2,3]"
	DType  tensor.DType `gorm:"not null"`
	Minval int64        `gorm:"not null"`
	Maxval int64        `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Generation is the audit record of one generation call. The seed itself is
// never stored: SeedFingerprint is the SHA-256 of the packed 32 seed bytes,
// and Checksum the SHA-256 of the little-endian output payload, which is
// enough to verify a replay without the server ever holding key material at
// rest.
type Generation struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TensorSpecID *uuid.UUID `gorm:"type:uuid;index;default:null"` // set when run against a saved spec

	Shape        string       `gorm:"not null"`
	DType        tensor.DType `gorm:"not null"`
	Minval       int64        `gorm:"not null"`
	Maxval       int64        `gorm:"not null"`
	ElementCount int          `gorm:"not null"`

	SeedFingerprint string `gorm:"not null;index"`
	Checksum        string `gorm:"not null"`

	AdminUserID uuid.UUID  `gorm:"type:uuid;not null;index"` // who ran it
	IsReplay    bool       `gorm:"not null;default:false"`
	OriginalID  *uuid.UUID `gorm:"type:uuid;default:null"` // points to the replayed Generation.ID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Migrate will create/update the tables.
func Migrate(db *gorm.DB) {
	db.AutoMigrate(
		&AdminUser{},
		&TensorSpec{},
		&Generation{},
	)
}
