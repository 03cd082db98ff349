package model

import "time"

// Document statuses.
const (
    DocumentPending  = "en_attente"
    DocumentValid    = "valide"
    DocumentRejected = "rejete"
)

// DocumentTypes lists the credentials a professional may submit.
var DocumentTypes = []string{"cni", "diplome", "certificat", "attestation"}

// Document is a credential submitted by a professional for review.
type Document struct {
    ID              uint64     `gorm:"primaryKey" json:"id"`
    ProfessionnelID uint64     `gorm:"index;not null" json:"professionnel_id"`
    Type            string     `gorm:"size:20;index;not null" json:"type"`
    Numero          string     `gorm:"size:100" json:"numero,omitempty"`
    Fichier         string     `gorm:"size:255;not null" json:"fichier"`
    URL             string     `gorm:"-" json:"url,omitempty"`
    Statut          string     `gorm:"size:20;index;not null" json:"statut"`
    Commentaire     string     `gorm:"type:text" json:"commentaire,omitempty"`
    ValidatedBy     *uint64    `json:"validated_by,omitempty"`
    DateValidation  *time.Time `json:"date_validation,omitempty"`
    CreatedAt       time.Time  `json:"created_at"`
    UpdatedAt       time.Time  `json:"updated_at"`
}

func (d Document) OwnerID() uint64 { return d.ProfessionnelID }
