package service

import (
    "context"
    "math"
    "time"

    "golang.org/x/sync/errgroup"
    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
)

// GlobalStats is the admin dashboard headline.
type GlobalStats struct {
    Utilisateurs   int64   `json:"total_utilisateurs"`
    Services       int64   `json:"total_services"`
    Demandes       int64   `json:"total_demandes"`
    Paiements      int64   `json:"total_paiements"`
    ChiffreAffaire float64 `json:"chiffre_affaires"`
    NoteMoyenne    float64 `json:"taux_satisfaction"`
}

// PerformanceStats covers demande throughput.
type PerformanceStats struct {
    TauxCompletion   float64                  `json:"taux_completion"`
    TauxAcceptation  float64                  `json:"taux_acceptation"`
    DureeMoyenneJour float64                  `json:"temps_moyen_traitement"`
    Satisfaction     float64                  `json:"satisfaction_clients"`
    Populaires       []repository.ServiceRank `json:"services_populaires"`
}

// MonthTotal is one bucket of the monthly revenue evolution.
type MonthTotal struct {
    Mois  string  `json:"mois"`
    Total float64 `json:"total"`
}

// FinancialStats covers payments.
type FinancialStats struct {
    Total      float64                `json:"chiffre_affaires_total"`
    EnAttente  float64                `json:"paiements_en_attente"`
    ParMethode []repository.AmountRow `json:"paiements_par_methode"`
    Evolution  []MonthTotal           `json:"evolution_mensuelle"`
}

// UserStats covers accounts.
type UserStats struct {
    Total          int64                 `json:"total_utilisateurs"`
    ParRole        map[string]int64      `json:"par_type"`
    Professionnels int64                 `json:"professionnels_actifs"`
    Clients        int64                 `json:"clients_actifs"`
    NouveauxMois   int64                 `json:"nouveaux_utilisateurs_mois"`
    ParVille       []repository.CountRow `json:"repartition_geographique"`
    ParZone        []repository.CountRow `json:"utilisateurs_par_zone"`
}

// MessageStats covers messaging activity.
type MessageStats struct {
    Total               int64   `json:"total_messages"`
    NonLus              int64   `json:"messages_non_lus"`
    ConversationsActive int     `json:"conversations_actives"`
    ReponseMinutes      float64 `json:"temps_moyen_reponse"`
}

// CompetenceStats lists the most declared competences.
type CompetenceStats struct {
    Populaires []repository.CompetenceRank `json:"competences_populaires"`
}

// ProfessionalStats is a professional's own dashboard.
type ProfessionalStats struct {
    Services        int64            `json:"total_services"`
    Demandes        int64            `json:"total_demandes"`
    ParStatut       map[string]int64 `json:"demandes_par_statut"`
    NoteMoyenne     float64          `json:"note_moyenne"`
    Revenus         float64          `json:"revenus_total"`
    TauxAcceptation float64          `json:"taux_acceptation"`
}

// Window sizes of the rollups.
const (
    TopServicesLimit    = 5
    TopCompetencesLimit = 10
    TopCitiesLimit      = 20
    EvolutionMonths     = 12
    ActiveWindow        = 30 * 24 * time.Hour
)

// acceptedStatuses are the demande statuses reached through acceptance.
var acceptedStatuses = []model.DemandeStatus{model.DemandeAccepted, model.DemandeInProgress, model.DemandeDone}

// StatsService computes read-only rollups.  Independent queries of one
// rollup run concurrently.
type StatsService struct {
    stats *repository.StatsRepo
    gate  *policy.Gate
    now   Clock
}

func NewStatsService(db *gorm.DB, gate *policy.Gate) *StatsService {
    return &StatsService{stats: repository.NewStatsRepo(db), gate: gate, now: utcNow}
}

func (s *StatsService) Global(ctx context.Context, caller policy.Caller) (GlobalStats, error) {
    var out GlobalStats
    if err := s.gate.Authorize(ctx, caller, policy.StatsGlobal, nil); err != nil {
        return out, err
    }
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) { out.Utilisateurs, err = s.stats.Count(gctx, &model.User{}, ""); return })
    g.Go(func() (err error) { out.Services, err = s.stats.Count(gctx, &model.Service{}, ""); return })
    g.Go(func() (err error) { out.Demandes, err = s.stats.Count(gctx, &model.Demande{}, ""); return })
    g.Go(func() (err error) { out.Paiements, err = s.stats.Count(gctx, &model.Payment{}, ""); return })
    g.Go(func() (err error) { out.ChiffreAffaire, err = s.stats.Revenue(gctx, 0); return })
    g.Go(func() (err error) { out.NoteMoyenne, err = s.stats.AverageNote(gctx, 0); return })
    if err := g.Wait(); err != nil {
        return GlobalStats{}, err
    }
    out.NoteMoyenne = round2(out.NoteMoyenne)
    return out, nil
}

func (s *StatsService) Performances(ctx context.Context, caller policy.Caller) (PerformanceStats, error) {
    var out PerformanceStats
    if err := s.gate.Authorize(ctx, caller, policy.StatsGlobal, nil); err != nil {
        return out, err
    }
    var (
        byStatus map[string]int64
        spans    []repository.Span
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) { byStatus, err = s.stats.DemandesByStatus(gctx, 0); return })
    g.Go(func() (err error) { spans, err = s.stats.FinishedSpans(gctx); return })
    g.Go(func() (err error) { out.Satisfaction, err = s.stats.AverageNote(gctx, 0); return })
    g.Go(func() (err error) { out.Populaires, err = s.stats.TopServices(gctx, TopServicesLimit); return })
    if err := g.Wait(); err != nil {
        return PerformanceStats{}, err
    }
    total := sum(byStatus)
    out.TauxCompletion = percent(byStatus[string(model.DemandeDone)], total)
    out.TauxAcceptation = percent(accepted(byStatus), total)
    out.DureeMoyenneJour = round2(averageDays(spans))
    out.Satisfaction = round2(out.Satisfaction)
    if out.Populaires == nil {
        out.Populaires = []repository.ServiceRank{}
    }
    return out, nil
}

func (s *StatsService) Financial(ctx context.Context, caller policy.Caller) (FinancialStats, error) {
    var out FinancialStats
    if err := s.gate.Authorize(ctx, caller, policy.StatsGlobal, nil); err != nil {
        return out, err
    }
    now := s.now()
    start := monthStart(now).AddDate(0, -(EvolutionMonths - 1), 0)
    var confirmed []repository.DatedAmount
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) { out.Total, err = s.stats.Revenue(gctx, 0); return })
    g.Go(func() (err error) { out.EnAttente, err = s.stats.Pending(gctx); return })
    g.Go(func() (err error) { out.ParMethode, err = s.stats.PaymentsByMethod(gctx); return })
    g.Go(func() (err error) { confirmed, err = s.stats.ConfirmedSince(gctx, start); return })
    if err := g.Wait(); err != nil {
        return FinancialStats{}, err
    }
    out.Evolution = monthlyEvolution(start, confirmed)
    return out, nil
}

func (s *StatsService) Users(ctx context.Context, caller policy.Caller) (UserStats, error) {
    var out UserStats
    if err := s.gate.Authorize(ctx, caller, policy.StatsGlobal, nil); err != nil {
        return out, err
    }
    since := monthStart(s.now())
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) { out.ParRole, err = s.stats.UsersByRole(gctx); return })
    g.Go(func() (err error) {
        out.NouveauxMois, err = s.stats.Count(gctx, &model.User{}, "created_at >= ?", since)
        return
    })
    g.Go(func() (err error) { out.ParVille, err = s.stats.UsersByCity(gctx, TopCitiesLimit); return })
    g.Go(func() (err error) { out.ParZone, err = s.stats.UsersByZone(gctx); return })
    if err := g.Wait(); err != nil {
        return UserStats{}, err
    }
    out.Total = sum(out.ParRole)
    out.Professionnels = out.ParRole[string(model.RoleProfessionnel)]
    out.Clients = out.ParRole[string(model.RoleClient)]
    return out, nil
}

func (s *StatsService) Messages(ctx context.Context, caller policy.Caller) (MessageStats, error) {
    var out MessageStats
    if err := s.gate.Authorize(ctx, caller, policy.StatsGlobal, nil); err != nil {
        return out, err
    }
    var (
        pairs  [][2]uint64
        delays []repository.Span
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) { out.Total, err = s.stats.Count(gctx, &model.Message{}, ""); return })
    g.Go(func() (err error) { out.NonLus, err = s.stats.Count(gctx, &model.Message{}, "lu = ?", false); return })
    g.Go(func() (err error) { pairs, err = s.stats.ActivePairs(gctx, s.now().Add(-ActiveWindow)); return })
    g.Go(func() (err error) { delays, err = s.stats.ReadDelays(gctx); return })
    if err := g.Wait(); err != nil {
        return MessageStats{}, err
    }
    out.ConversationsActive = conversations(pairs)
    out.ReponseMinutes = round2(averageDuration(delays).Minutes())
    return out, nil
}

func (s *StatsService) Competences(ctx context.Context, caller policy.Caller) (CompetenceStats, error) {
    if err := s.gate.Authorize(ctx, caller, policy.StatsGlobal, nil); err != nil {
        return CompetenceStats{}, err
    }
    top, err := s.stats.TopCompetences(ctx, TopCompetencesLimit)
    if err != nil {
        return CompetenceStats{}, err
    }
    if top == nil {
        top = []repository.CompetenceRank{}
    }
    return CompetenceStats{Populaires: top}, nil
}

// Professional returns the caller's own figures.
func (s *StatsService) Professional(ctx context.Context, caller policy.Caller) (ProfessionalStats, error) {
    var out ProfessionalStats
    if err := s.gate.Authorize(ctx, caller, policy.ProfessionalProfile, nil); err != nil {
        return out, err
    }
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) {
        out.Services, err = s.stats.Count(gctx, &model.Service{}, "professionnel_id = ?", caller.ID)
        return
    })
    g.Go(func() (err error) { out.ParStatut, err = s.stats.DemandesByStatus(gctx, caller.ID); return })
    g.Go(func() (err error) { out.NoteMoyenne, err = s.stats.AverageNote(gctx, caller.ID); return })
    g.Go(func() (err error) { out.Revenus, err = s.stats.Revenue(gctx, caller.ID); return })
    if err := g.Wait(); err != nil {
        return ProfessionalStats{}, err
    }
    out.Demandes = sum(out.ParStatut)
    out.NoteMoyenne = round2(out.NoteMoyenne)
    out.TauxAcceptation = percent(accepted(out.ParStatut), out.Demandes)
    return out, nil
}

func sum(m map[string]int64) int64 {
    var n int64
    for _, v := range m {
        n += v
    }
    return n
}

func accepted(byStatus map[string]int64) int64 {
    var n int64
    for _, st := range acceptedStatuses {
        n += byStatus[string(st)]
    }
    return n
}

func percent(part, total int64) float64 {
    if total == 0 {
        return 0
    }
    return round2(float64(part) / float64(total) * 100)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func averageDuration(spans []repository.Span) time.Duration {
    if len(spans) == 0 {
        return 0
    }
    var total time.Duration
    for _, sp := range spans {
        total += sp.DateFinReelle.Sub(sp.CreatedAt)
    }
    return total / time.Duration(len(spans))
}

func averageDays(spans []repository.Span) float64 {
    return averageDuration(spans).Hours() / 24
}

func monthStart(t time.Time) time.Time {
    return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthlyEvolution buckets confirmed amounts into EvolutionMonths
// consecutive months starting at start.  Empty months are kept.
func monthlyEvolution(start time.Time, rows []repository.DatedAmount) []MonthTotal {
    out := make([]MonthTotal, EvolutionMonths)
    index := make(map[string]int, EvolutionMonths)
    for i := range out {
        key := start.AddDate(0, i, 0).Format("2006-01")
        out[i].Mois = key
        index[key] = i
    }
    for _, r := range rows {
        if i, ok := index[r.DateConfirmation.UTC().Format("2006-01")]; ok {
            out[i].Total += r.Montant
        }
    }
    return out
}

// conversations counts unordered user pairs.
func conversations(pairs [][2]uint64) int {
    seen := make(map[[2]uint64]bool, len(pairs))
    for _, p := range pairs {
        if p[0] > p[1] {
            p[0], p[1] = p[1], p[0]
        }
        seen[p] = true
    }
    return len(seen)
}
