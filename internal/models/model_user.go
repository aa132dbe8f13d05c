package models

import (
	"strings"
	"time"

	"github.com/trainwise/backend/pkg/types"
)

// User covers all three roles. Trainer- and member-specific fields are
// nullable and only meaningful for the matching role.
type User struct {
	ID           string     `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Username     string     `gorm:"column:username;type:varchar(64);not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"column:email;type:varchar(128);not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(128)" json:"-"`
	FirstName    string     `gorm:"column:first_name;type:varchar(64)" json:"first_name"`
	LastName     string     `gorm:"column:last_name;type:varchar(64)" json:"last_name"`
	Role         types.Role `gorm:"column:role;type:varchar(16);not null;index" json:"role"`
	Phone        *string    `gorm:"column:phone;type:varchar(15)" json:"phone"`
	Gender       *string    `gorm:"column:gender;type:varchar(10)" json:"gender"`

	// Trainer-specific fields.
	Specialization  *string `gorm:"column:specialization;type:varchar(100)" json:"specialization"`
	ExperienceYears *int    `gorm:"column:experience_years" json:"experience_years"`
	// ExperienceLevel feeds the private-class price multiplier; 0 when unset.
	ExperienceLevel int `gorm:"column:experience_level;default:0" json:"experience_level"`

	// Member-specific fields.
	Age         *int     `gorm:"column:age" json:"age"`
	HeightCM    *float64 `gorm:"column:height_cm;type:decimal(5,2)" json:"height_cm"`
	WeightKG    *float64 `gorm:"column:weight_kg;type:decimal(5,2)" json:"weight_kg"`
	FitnessGoal *string  `gorm:"column:fitness_goal;type:varchar(100)" json:"fitness_goal"`

	// MustSetPassword marks admin-created accounts that have not yet chosen
	// a password.
	MustSetPassword bool `gorm:"column:must_set_password;default:false" json:"must_set_password"`
	IsActive        bool `gorm:"column:is_active;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
