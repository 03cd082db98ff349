package repository

import (
    "context"
    "time"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// DemandeRepo persists booking requests.
type DemandeRepo struct{ DB *gorm.DB }

func NewDemandeRepo(db *gorm.DB) *DemandeRepo { return &DemandeRepo{DB: db} }

// WithTx binds the repository to an open transaction.
func (r *DemandeRepo) WithTx(tx *gorm.DB) *DemandeRepo { return &DemandeRepo{DB: tx} }

// DemandeFilter narrows a listing.  Zero ids mean "any party".
type DemandeFilter struct {
    ClientID        uint64
    ProfessionnelID uint64
    Statut          model.DemandeStatus
}

func (r *DemandeRepo) Create(ctx context.Context, d *model.Demande) error {
    return r.DB.WithContext(ctx).Omit(clause.Associations).Create(d).Error
}

// Lock takes a row lock on the demande for the rest of the bound
// transaction and returns its current statut.
func (r *DemandeRepo) Lock(ctx context.Context, id uint64) (model.DemandeStatus, error) {
    var d model.Demande
    err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
        Select("id", "statut").First(&d, id).Error
    return d.Statut, notFound(err)
}

// GetByID loads a demande with its service and both parties.
func (r *DemandeRepo) GetByID(ctx context.Context, id uint64) (model.Demande, error) {
    var d model.Demande
    err := r.DB.WithContext(ctx).
        Preload("Service").Preload("Client").Preload("Professionnel").
        First(&d, id).Error
    return d, notFound(err)
}

// List returns demandes matching f, newest first.
func (r *DemandeRepo) List(ctx context.Context, f DemandeFilter, p Page) (Paged[model.Demande], error) {
    q := r.DB.WithContext(ctx).Model(&model.Demande{})
    if f.ClientID != 0 {
        q = q.Where("client_id = ?", f.ClientID)
    }
    if f.ProfessionnelID != 0 {
        q = q.Where("professionnel_id = ?", f.ProfessionnelID)
    }
    if f.Statut != "" {
        q = q.Where("statut = ?", f.Statut)
    }
    return paginate[model.Demande](q, p, func(db *gorm.DB) *gorm.DB {
        return db.Preload("Service").Preload("Client").Preload("Professionnel").
            Order("created_at DESC").Order("id DESC")
    })
}

// UpdateStatus moves a demande from one status to another, writing the
// extra columns in the same statement.  It returns ErrStale when the row
// is no longer in from.
func (r *DemandeRepo) UpdateStatus(ctx context.Context, id uint64, from []model.DemandeStatus, to model.DemandeStatus, extra map[string]any) error {
    fields := map[string]any{"statut": to, "updated_at": time.Now().UTC()}
    for k, v := range extra {
        fields[k] = v
    }
    res := r.DB.WithContext(ctx).Model(&model.Demande{}).
        Where("id = ? AND statut IN ?", id, from).
        Updates(fields)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrStale
    }
    return nil
}

// Rate stores the client rating once.  ErrStale means the demande is not
// terminated or was already rated.
func (r *DemandeRepo) Rate(ctx context.Context, id uint64, note int, evaluation string) error {
    res := r.DB.WithContext(ctx).Model(&model.Demande{}).
        Where("id = ? AND statut = ? AND note IS NULL", id, model.DemandeDone).
        Updates(map[string]any{"note": note, "evaluation": evaluation, "updated_at": time.Now().UTC()})
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return ErrStale
    }
    return nil
}

// IsParty reports whether userID is the client or professional of id.
func (r *DemandeRepo) IsParty(ctx context.Context, id, userID uint64) (bool, error) {
    var n int64
    err := r.DB.WithContext(ctx).Model(&model.Demande{}).
        Where("id = ? AND (client_id = ? OR professionnel_id = ?)", id, userID, userID).
        Count(&n).Error
    return n > 0, err
}
