package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the tenant identity every owned row must resolve to.
type User struct {
	UserID         string    `gorm:"primaryKey;size:36;column:user_id" json:"user_id"`
	Email          string    `gorm:"size:255;not null;uniqueIndex:idx_users_email;column:email" json:"email"`
	HashedPassword string    `gorm:"type:text;column:hashed_password" json:"-"`
	Role           string    `gorm:"size:30;not null;default:user;column:role" json:"role"`
	IsActive       bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedUTC     time.Time `gorm:"column:created_utc" json:"created_utc"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	return nil
}

// SetPassword stores a bcrypt hash of the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.HashedPassword = string(hashed)
	return nil
}

// CheckPassword compares the stored hash against a plaintext candidate.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(plain)) == nil
}

// ApiKey holds a hashed API token issued to a user.
type ApiKey struct {
	KeyID      string    `gorm:"primaryKey;size:36;column:key_id" json:"key_id"`
	UserID     string    `gorm:"size:36;not null;index;column:user_id" json:"user_id"`
	Name       string    `gorm:"size:255;column:name" json:"name,omitempty"`
	TokenHash  string    `gorm:"type:text;not null;column:token_hash" json:"-"`
	IsActive   bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedUTC time.Time `gorm:"column:created_utc" json:"created_utc"`

	User *User `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (ApiKey) TableName() string { return "api_keys" }

func (k *ApiKey) BeforeCreate(_ *gorm.DB) error {
	if k.KeyID == "" {
		k.KeyID = uuid.NewString()
	}
	return nil
}

// UserSettings is a one-row-per-user JSON settings blob.
type UserSettings struct {
	UserID       string    `gorm:"primaryKey;size:36;column:user_id" json:"user_id"`
	SettingsJSON string    `gorm:"type:text;column:settings_json" json:"settings_json,omitempty"`
	UpdatedUTC   time.Time `gorm:"column:updated_utc" json:"updated_utc"`
}

func (UserSettings) TableName() string { return "user_settings" }
