package model

import "time"

// Role is the account type chosen at registration.  It never changes
// afterwards; every authorization decision starts from it.
type Role string

const (
    RoleClient        Role = "client"
    RoleProfessionnel Role = "professionnel"
    RoleAdmin         Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleClient, RoleProfessionnel, RoleAdmin:
        return true
    }
    return false
}

// User represents a row of the `users` table.  Skills and diplomas are
// owned typed collections instead of free-form arrays on the user row.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash, never serialized.
//  Role         – client, professionnel or admin (exposed as "type").
//  Photo        – storage key of the profile picture, if any.
type User struct {
    ID           uint64            `gorm:"primaryKey" json:"id"`
    Nom          string            `gorm:"size:100;not null" json:"nom"`
    Prenom       string            `gorm:"size:100" json:"prenom"`
    Email        string            `gorm:"size:191;uniqueIndex;not null" json:"email"`
    PasswordHash string            `gorm:"size:255;not null" json:"-"`
    Role         Role              `gorm:"size:20;index;not null" json:"type"`
    Telephone    string            `gorm:"size:30" json:"telephone"`
    Adresse      string            `gorm:"size:255" json:"adresse,omitempty"`
    Ville        string            `gorm:"size:100;index" json:"ville,omitempty"`
    Bio          string            `gorm:"type:text" json:"bio,omitempty"`
    Photo        string            `gorm:"size:255" json:"photo,omitempty"`
    PhotoURL     string            `gorm:"-" json:"photo_url,omitempty"`
    IsActive     bool              `gorm:"not null" json:"is_active"`
    Competences  []UserCompetence  `gorm:"constraint:OnDelete:CASCADE" json:"competences,omitempty"`
    Diplomes     []Diploma         `gorm:"constraint:OnDelete:CASCADE" json:"diplomes,omitempty"`
    CreatedAt    time.Time         `json:"created_at"`
    UpdatedAt    time.Time         `json:"updated_at"`
}

// UserCompetence is one entry of a user's skills list.
type UserCompetence struct {
    ID               uint64      `gorm:"primaryKey" json:"id"`
    UserID           uint64      `gorm:"uniqueIndex:idx_user_competence;not null" json:"user_id"`
    CompetenceID     uint64      `gorm:"uniqueIndex:idx_user_competence;not null" json:"competence_id"`
    Competence       *Competence `json:"competence,omitempty"`
    Niveau           string      `gorm:"size:20;not null" json:"niveau"`
    AnneesExperience int         `gorm:"not null" json:"annees_experience"`
}

// Diploma is one entry of a user's diplomas list.  Document holds the
// storage key of the scanned certificate.
type Diploma struct {
    ID          uint64    `gorm:"primaryKey" json:"id"`
    UserID      uint64    `gorm:"index;not null" json:"user_id"`
    Titre       string    `gorm:"size:150;not null" json:"titre"`
    Institution string    `gorm:"size:150" json:"institution"`
    Annee       int       `json:"annee"`
    Document    string    `gorm:"size:255" json:"document,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}

func (Diploma) TableName() string { return "diplomes" }

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     `gorm:"primaryKey"`
    UserID    uint64     `gorm:"index;not null"`
    TokenHash string     `gorm:"size:64;uniqueIndex;not null"`
    ExpiresAt time.Time  `gorm:"not null"`
    RevokedAt *time.Time
    CreatedAt time.Time
}
