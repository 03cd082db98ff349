package repository

import (
    "context"
    "time"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
)

// StatsRepo runs the read-only aggregate queries behind the statistics
// endpoints.  Each method is a single query so callers can run them
// concurrently.
type StatsRepo struct{ DB *gorm.DB }

func NewStatsRepo(db *gorm.DB) *StatsRepo { return &StatsRepo{DB: db} }

// CountRow is a (key, count) pair from a GROUP BY.
type CountRow struct {
    Key   string `json:"key"`
    Count int64  `json:"count"`
}

// AmountRow is a (key, sum) pair from a GROUP BY.
type AmountRow struct {
    Key    string  `json:"key"`
    Count  int64   `json:"count"`
    Amount float64 `json:"montant"`
}

// ServiceRank is one row of the most requested services.
type ServiceRank struct {
    ServiceID uint64 `json:"service_id"`
    Titre     string `json:"titre"`
    Demandes  int64  `json:"demandes"`
}

// CompetenceRank is one row of the most declared competences.
type CompetenceRank struct {
    CompetenceID uint64 `json:"competence_id"`
    Nom          string `json:"nom"`
    Total        int64  `json:"total"`
}

// DatedAmount is a confirmed payment reduced to what the monthly
// evolution needs.
type DatedAmount struct {
    DateConfirmation time.Time
    Montant          float64
}

// Span is the start and end of a finished demande.
type Span struct {
    CreatedAt     time.Time
    DateFinReelle time.Time
}

// Count counts rows of m, optionally filtered.
func (r *StatsRepo) Count(ctx context.Context, m any, where string, args ...any) (int64, error) {
    var n int64
    q := r.DB.WithContext(ctx).Model(m)
    if where != "" {
        q = q.Where(where, args...)
    }
    err := q.Count(&n).Error
    return n, err
}

// DemandesByStatus counts demandes per statut; professionalID 0 means all.
func (r *StatsRepo) DemandesByStatus(ctx context.Context, professionalID uint64) (map[string]int64, error) {
    q := r.DB.WithContext(ctx).Model(&model.Demande{}).Select("statut AS k, COUNT(*) AS count")
    if professionalID != 0 {
        q = q.Where("professionnel_id = ?", professionalID)
    }
    var raw []struct {
        K     string
        Count int64
    }
    if err := q.Group("statut").Scan(&raw).Error; err != nil {
        return nil, err
    }
    out := make(map[string]int64, len(raw))
    for _, row := range raw {
        out[row.K] = row.Count
    }
    return out, nil
}

// Revenue sums confirmed payments; professionalID 0 means all.
func (r *StatsRepo) Revenue(ctx context.Context, professionalID uint64) (float64, error) {
    return r.sumPayments(ctx, model.PaymentConfirmed, professionalID)
}

// Pending sums payments still en_attente.
func (r *StatsRepo) Pending(ctx context.Context) (float64, error) {
    return r.sumPayments(ctx, model.PaymentPending, 0)
}

func (r *StatsRepo) sumPayments(ctx context.Context, statut model.PaymentStatus, professionalID uint64) (float64, error) {
    var total struct{ Total float64 }
    q := r.DB.WithContext(ctx).Model(&model.Payment{}).
        Select("COALESCE(SUM(montant), 0) AS total").
        Where("statut = ?", statut)
    if professionalID != 0 {
        q = q.Where("professionnel_id = ?", professionalID)
    }
    err := q.Scan(&total).Error
    return total.Total, err
}

// AverageNote averages ratings; professionalID 0 means all.
func (r *StatsRepo) AverageNote(ctx context.Context, professionalID uint64) (float64, error) {
    var avg struct{ Avg *float64 }
    q := r.DB.WithContext(ctx).Model(&model.Demande{}).
        Select("AVG(note) AS avg").
        Where("note IS NOT NULL")
    if professionalID != 0 {
        q = q.Where("professionnel_id = ?", professionalID)
    }
    if err := q.Scan(&avg).Error; err != nil {
        return 0, err
    }
    if avg.Avg == nil {
        return 0, nil
    }
    return *avg.Avg, nil
}

// PaymentsByMethod sums confirmed payments per methode.
func (r *StatsRepo) PaymentsByMethod(ctx context.Context) ([]AmountRow, error) {
    var raw []struct {
        Methode string
        Count   int64
        Amount  float64
    }
    err := r.DB.WithContext(ctx).Model(&model.Payment{}).
        Select("methode, COUNT(*) AS count, COALESCE(SUM(montant), 0) AS amount").
        Where("statut = ?", model.PaymentConfirmed).
        Group("methode").Order("methode").
        Scan(&raw).Error
    out := make([]AmountRow, 0, len(raw))
    for _, row := range raw {
        out = append(out, AmountRow{Key: row.Methode, Count: row.Count, Amount: row.Amount})
    }
    return out, err
}

// ConfirmedSince lists confirmed payments after since.
func (r *StatsRepo) ConfirmedSince(ctx context.Context, since time.Time) ([]DatedAmount, error) {
    var out []DatedAmount
    err := r.DB.WithContext(ctx).Model(&model.Payment{}).
        Select("date_confirmation, montant").
        Where("statut = ? AND date_confirmation >= ?", model.PaymentConfirmed, since).
        Find(&out).Error
    return out, err
}

// FinishedSpans lists creation and completion times of finished demandes.
func (r *StatsRepo) FinishedSpans(ctx context.Context) ([]Span, error) {
    var out []Span
    err := r.DB.WithContext(ctx).Model(&model.Demande{}).
        Select("created_at, date_fin_reelle").
        Where("statut = ? AND date_fin_reelle IS NOT NULL", model.DemandeDone).
        Find(&out).Error
    return out, err
}

// TopServices ranks services by number of demandes.
func (r *StatsRepo) TopServices(ctx context.Context, limit int) ([]ServiceRank, error) {
    var out []ServiceRank
    err := r.DB.WithContext(ctx).Table("demandes").
        Select("demandes.service_id AS service_id, services.titre AS titre, COUNT(*) AS demandes").
        Joins("JOIN services ON services.id = demandes.service_id").
        Group("demandes.service_id, services.titre").
        Order("demandes DESC").
        Limit(limit).
        Scan(&out).Error
    return out, err
}

// UsersByRole counts users per role.
func (r *StatsRepo) UsersByRole(ctx context.Context) (map[string]int64, error) {
    var raw []struct {
        Role  string
        Count int64
    }
    err := r.DB.WithContext(ctx).Model(&model.User{}).
        Select("role, COUNT(*) AS count").Group("role").Scan(&raw).Error
    out := make(map[string]int64, len(raw))
    for _, row := range raw {
        out[row.Role] = row.Count
    }
    return out, err
}

// UsersByCity ranks cities by number of users.
func (r *StatsRepo) UsersByCity(ctx context.Context, limit int) ([]CountRow, error) {
    var raw []struct {
        Ville string
        Count int64
    }
    err := r.DB.WithContext(ctx).Model(&model.User{}).
        Select("ville, COUNT(*) AS count").
        Where("ville <> ''").
        Group("ville").Order("count DESC").Limit(limit).
        Scan(&raw).Error
    out := make([]CountRow, 0, len(raw))
    for _, row := range raw {
        out = append(out, CountRow{Key: row.Ville, Count: row.Count})
    }
    return out, err
}

// ActivePairs returns the distinct (sender, recipient) pairs with
// messages after since.
func (r *StatsRepo) ActivePairs(ctx context.Context, since time.Time) ([][2]uint64, error) {
    var raw []struct {
        ExpediteurID   uint64
        DestinataireID uint64
    }
    err := r.DB.WithContext(ctx).Model(&model.Message{}).
        Select("expediteur_id, destinataire_id").
        Where("created_at >= ?", since).
        Group("expediteur_id, destinataire_id").
        Scan(&raw).Error
    out := make([][2]uint64, 0, len(raw))
    for _, row := range raw {
        out = append(out, [2]uint64{row.ExpediteurID, row.DestinataireID})
    }
    return out, err
}

// TopCompetences ranks competences by how many users declare them.
func (r *StatsRepo) TopCompetences(ctx context.Context, limit int) ([]CompetenceRank, error) {
    var out []CompetenceRank
    err := r.DB.WithContext(ctx).Table("user_competences").
        Select("competences.id AS competence_id, competences.nom AS nom, COUNT(*) AS total").
        Joins("JOIN competences ON competences.id = user_competences.competence_id").
        Group("competences.id, competences.nom").
        Order("total DESC").
        Limit(limit).
        Scan(&out).Error
    return out, err
}

// UsersByZone counts distinct professionals offering services per zone.
func (r *StatsRepo) UsersByZone(ctx context.Context) ([]CountRow, error) {
    var raw []struct {
        Nom   string
        Count int64
    }
    err := r.DB.WithContext(ctx).Table("zones").
        Select("zones.nom AS nom, COUNT(DISTINCT services.professionnel_id) AS count").
        Joins("JOIN service_zones ON service_zones.zone_id = zones.id").
        Joins("JOIN services ON services.id = service_zones.service_id").
        Group("zones.id, zones.nom").Order("count DESC").
        Scan(&raw).Error
    out := make([]CountRow, 0, len(raw))
    for _, row := range raw {
        out = append(out, CountRow{Key: row.Nom, Count: row.Count})
    }
    return out, err
}

// ReadDelays lists sending and reading times of read messages.
func (r *StatsRepo) ReadDelays(ctx context.Context) ([]Span, error) {
    var raw []struct {
        CreatedAt   time.Time
        DateLecture time.Time
    }
    err := r.DB.WithContext(ctx).Model(&model.Message{}).
        Select("created_at, date_lecture").
        Where("date_lecture IS NOT NULL").
        Scan(&raw).Error
    out := make([]Span, 0, len(raw))
    for _, row := range raw {
        out = append(out, Span{CreatedAt: row.CreatedAt, DateFinReelle: row.DateLecture})
    }
    return out, err
}
