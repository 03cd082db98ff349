package model

import "time"

// Time units a service price refers to.
var TimeUnits = []string{"heure", "jour", "semaine", "mois"}

// MaxGalleryPhotos bounds the length of a service gallery.
const MaxGalleryPhotos = 10

// Service is a listing published by a professional.  Zones, skills and
// photos are separate tables so their rules can be enforced per row.
type Service struct {
    ID              uint64         `gorm:"primaryKey" json:"id"`
    ProfessionnelID uint64         `gorm:"index;not null" json:"professionnel_id"`
    Professionnel   *User          `gorm:"foreignKey:ProfessionnelID" json:"professionnel,omitempty"`
    CategoryID      uint64         `gorm:"index;not null" json:"categorie_id"`
    Category        *Category      `json:"categorie,omitempty"`
    Titre           string         `gorm:"size:150;not null" json:"titre"`
    Description     string         `gorm:"type:text;not null" json:"description"`
    Prix            float64        `gorm:"type:decimal(10,2);not null" json:"prix"`
    UniteTemps      string         `gorm:"size:20;not null" json:"unite_temps"`
    DureeEstimee    int            `json:"duree_estimee"`
    Disponible      bool           `gorm:"index;not null" json:"disponible"`
    Zones           []Zone         `gorm:"many2many:service_zones" json:"zones"`
    Skills          []ServiceSkill `gorm:"constraint:OnDelete:CASCADE" json:"competences"`
    Photos          []ServicePhoto `gorm:"constraint:OnDelete:CASCADE" json:"galerie"`
    CreatedAt       time.Time      `gorm:"index" json:"created_at"`
    UpdatedAt       time.Time      `json:"updated_at"`
}

// OwnerID returns the professional who owns the listing.
func (s Service) OwnerID() uint64 { return s.ProfessionnelID }

// ServiceSkill is one typed skill entry of a service.
type ServiceSkill struct {
    ID               uint64 `gorm:"primaryKey" json:"id"`
    ServiceID        uint64 `gorm:"index;not null" json:"service_id"`
    CompetenceID     uint64 `gorm:"index;not null" json:"competence_id"`
    Nom              string `gorm:"size:100;not null" json:"nom"`
    Niveau           string `gorm:"size:20;not null" json:"niveau"`
    AnneesExperience int    `gorm:"not null" json:"annees_experience"`
}

// ServicePhoto is one gallery entry.  Position orders the gallery.
type ServicePhoto struct {
    ID        uint64    `gorm:"primaryKey" json:"id"`
    ServiceID uint64    `gorm:"index;not null" json:"service_id"`
    Chemin    string    `gorm:"size:255;not null" json:"chemin"`
    Position  int       `gorm:"not null" json:"position"`
    URL       string    `gorm:"-" json:"url,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}

// Favori bookmarks a service for a user, unique per pair.
type Favori struct {
    ID        uint64    `gorm:"primaryKey" json:"id"`
    UserID    uint64    `gorm:"uniqueIndex:idx_favori_user_service;not null" json:"user_id"`
    ServiceID uint64    `gorm:"uniqueIndex:idx_favori_user_service;not null" json:"service_id"`
    Service   *Service  `json:"service,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}

func (Favori) TableName() string { return "favoris" }
