package model

import (
    "time"

    "gorm.io/gorm"
)

// Message limits.
const (
    MaxMessageLength     = 1000
    MaxAttachmentBytes   = 5 << 20
    MaxAttachmentsPerMsg = 5
)

// Message is a direct message between two users, optionally about a
// demande.  Deleting a message only sets DeletedAt.
type Message struct {
    ID             uint64              `gorm:"primaryKey" json:"id"`
    ExpediteurID   uint64              `gorm:"index;not null" json:"expediteur_id"`
    Expediteur     *User               `gorm:"foreignKey:ExpediteurID" json:"expediteur,omitempty"`
    DestinataireID uint64              `gorm:"index;not null" json:"destinataire_id"`
    Destinataire   *User               `gorm:"foreignKey:DestinataireID" json:"destinataire,omitempty"`
    DemandeID      *uint64             `gorm:"index" json:"demande_id,omitempty"`
    Contenu        string              `gorm:"type:text;not null" json:"contenu"`
    Lu             bool                `gorm:"index;not null" json:"lu"`
    DateLecture    *time.Time          `json:"date_lecture,omitempty"`
    Attachments    []MessageAttachment `gorm:"constraint:OnDelete:CASCADE" json:"pieces_jointes"`
    CreatedAt      time.Time           `gorm:"index" json:"created_at"`
    UpdatedAt      time.Time           `json:"updated_at"`
    DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (m Message) SenderParty() uint64    { return m.ExpediteurID }
func (m Message) RecipientParty() uint64 { return m.DestinataireID }

// MessageAttachment is one stored file of a message.
type MessageAttachment struct {
    ID        uint64    `gorm:"primaryKey" json:"id"`
    MessageID uint64    `gorm:"index;not null" json:"message_id"`
    Nom       string    `gorm:"size:255;not null" json:"nom"`
    Chemin    string    `gorm:"size:255;not null" json:"chemin"`
    Type      string    `gorm:"size:100" json:"type"`
    Taille    int64     `json:"taille"`
    URL       string    `gorm:"-" json:"url,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}
