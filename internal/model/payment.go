package model

import (
    "time"

    "gorm.io/datatypes"
)

// PaymentStatus is the single status vocabulary of payments.
type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "en_attente"
    PaymentConfirmed PaymentStatus = "confirme"
    PaymentCancelled PaymentStatus = "annule"
)

// Accepted payment methods and currencies.
var (
    PaymentMethods    = []string{"mobile_money", "carte", "virement"}
    PaymentCurrencies = []string{"XAF", "EUR", "USD"}
)

// MinPaymentAmount is the smallest amount a client may pay.
const MinPaymentAmount = 1000

// Payment records money owed by the client of a demande.  Both parties
// are copied from the demande at creation.
type Payment struct {
    ID               uint64            `gorm:"primaryKey" json:"id"`
    DemandeID        uint64            `gorm:"index;not null" json:"demande_id"`
    Demande          *Demande          `json:"demande,omitempty"`
    ClientID         uint64            `gorm:"index;not null" json:"client_id"`
    ProfessionnelID  uint64            `gorm:"index;not null" json:"professionnel_id"`
    Montant          float64           `gorm:"type:decimal(12,2);not null" json:"montant"`
    Devise           string            `gorm:"size:3;not null" json:"devise"`
    Methode          string            `gorm:"size:20;index;not null" json:"methode"`
    Reference        string            `gorm:"size:20;uniqueIndex;not null" json:"reference"`
    Statut           PaymentStatus     `gorm:"size:20;index;not null" json:"statut"`
    DateConfirmation *time.Time        `json:"date_confirmation,omitempty"`
    DateAnnulation   *time.Time        `json:"date_annulation,omitempty"`
    Commentaire      string            `gorm:"type:text" json:"commentaire,omitempty"`
    Details          datatypes.JSONMap `json:"details,omitempty"`
    CreatedAt        time.Time         `gorm:"index" json:"created_at"`
    UpdatedAt        time.Time         `json:"updated_at"`
}

func (Payment) TableName() string { return "paiements" }

func (p Payment) ClientParty() uint64       { return p.ClientID }
func (p Payment) ProfessionalParty() uint64 { return p.ProfessionnelID }
