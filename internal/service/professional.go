package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// DocumentInput is a credential submitted for review.
type DocumentInput struct {
    Type   string
    Numero string
    File   *storage.File
}

// Badge is one credential-derived distinction of a professional.
type Badge struct {
    Type        string `json:"type"`
    Obtenu      bool   `json:"obtenu"`
    Description string `json:"description"`
}

// ExpertThreshold is the number of competences that earns the expert badge.
const ExpertThreshold = 3

// ProfessionalService handles professional credentials: documents, the
// competence list and the badges derived from both.
type ProfessionalService struct {
    db       *gorm.DB
    docs     *repository.DocumentRepo
    users    *repository.UserRepo
    refs     *repository.ReferenceRepo
    store    storage.BlobStore
    gate     *policy.Gate
    notifier *Notifier
    events   EventPublisher
    now      Clock
}

func NewProfessionalService(db *gorm.DB, store storage.BlobStore, gate *policy.Gate, notifier *Notifier, events EventPublisher) *ProfessionalService {
    return &ProfessionalService{
        db:       db,
        docs:     repository.NewDocumentRepo(db),
        users:    repository.NewUserRepo(db),
        refs:     repository.NewReferenceRepo(db),
        store:    store,
        gate:     gate,
        notifier: notifier,
        events:   events,
        now:      utcNow,
    }
}

// SubmitDocument stores a credential awaiting admin review.
func (s *ProfessionalService) SubmitDocument(ctx context.Context, caller policy.Caller, in DocumentInput) (model.Document, error) {
    if err := s.gate.Authorize(ctx, caller, policy.DocumentSubmit, nil); err != nil {
        return model.Document{}, err
    }
    v := validation.Violations{}
    validation.OneOf("type", in.Type, model.DocumentTypes, v)
    validation.MaxLen("numero", in.Numero, 100, v)
    if in.File == nil {
        v.Add("document", "required")
    } else {
        checkDocumentFile("document", *in.File, v)
    }
    if err := invalid(v); err != nil {
        return model.Document{}, err
    }
    if s.store == nil {
        return model.Document{}, errors.New("document storage not configured")
    }
    keys, err := putFiles(ctx, s.store, fmt.Sprintf("documents/%d", caller.ID), []storage.File{*in.File})
    if err != nil {
        return model.Document{}, err
    }
    d := model.Document{
        ProfessionnelID: caller.ID,
        Type:            in.Type,
        Numero:          strings.TrimSpace(in.Numero),
        Fichier:         keys[0],
        Statut:          model.DocumentPending,
    }
    if err := s.docs.Create(ctx, &d); err != nil {
        dropBlobs(ctx, s.store, keys)
        return model.Document{}, err
    }
    d.URL = blobURL(ctx, s.store, d.Fichier)
    publish(ctx, s.events, queue.NewEvent("document.soumis", "document", d.ID, caller.ID, d.Statut))
    return d, nil
}

// Documents lists the caller's own documents, newest first.
func (s *ProfessionalService) Documents(ctx context.Context, caller policy.Caller) ([]model.Document, error) {
    if err := s.gate.Authorize(ctx, caller, policy.ProfessionalProfile, nil); err != nil {
        return nil, err
    }
    docs, err := s.docs.ListByOwner(ctx, caller.ID)
    if err != nil {
        return nil, err
    }
    for i := range docs {
        docs[i].URL = blobURL(ctx, s.store, docs[i].Fichier)
    }
    return docs, nil
}

// PendingDocuments lists documents awaiting review, for admins.
func (s *ProfessionalService) PendingDocuments(ctx context.Context, caller policy.Caller, p repository.Page) (repository.Paged[model.Document], error) {
    if err := s.gate.Authorize(ctx, caller, policy.DocumentValidate, nil); err != nil {
        return repository.Paged[model.Document]{}, err
    }
    out, err := s.docs.ListPending(ctx, p)
    if err != nil {
        return out, err
    }
    for i := range out.Data {
        out.Data[i].URL = blobURL(ctx, s.store, out.Data[i].Fichier)
    }
    return out, nil
}

// ReviewDocument records an admin decision and notifies the owner.
func (s *ProfessionalService) ReviewDocument(ctx context.Context, caller policy.Caller, id uint64, statut, comment string) (model.Document, error) {
    if err := s.gate.Authorize(ctx, caller, policy.DocumentValidate, nil); err != nil {
        return model.Document{}, err
    }
    v := validation.Violations{}
    validation.OneOf("statut", statut, []string{model.DocumentValid, model.DocumentRejected}, v)
    validation.MaxLen("commentaire", comment, 2000, v)
    if statut == model.DocumentRejected {
        validation.Required("commentaire", comment, v)
    }
    if err := invalid(v); err != nil {
        return model.Document{}, err
    }
    d, err := s.docs.GetByID(ctx, id)
    if err != nil {
        return model.Document{}, lookup(err, "document")
    }
    if err := s.docs.Review(ctx, d.ID, caller.ID, statut, strings.TrimSpace(comment), s.now()); err != nil {
        return model.Document{}, lookup(err, "document")
    }
    d, err = s.docs.GetByID(ctx, id)
    if err != nil {
        return model.Document{}, err
    }
    d.URL = blobURL(ctx, s.store, d.Fichier)
    s.notifier.DocumentReviewed(ctx, d)
    publish(ctx, s.events, queue.NewEvent("document."+statut, "document", d.ID, caller.ID, statut))
    return d, nil
}

// Competences returns the caller's competence entries.
func (s *ProfessionalService) Competences(ctx context.Context, caller policy.Caller) ([]model.UserCompetence, error) {
    if err := s.gate.Authorize(ctx, caller, policy.ProfessionalProfile, nil); err != nil {
        return nil, err
    }
    u, err := s.users.GetProfile(ctx, caller.ID)
    if err != nil {
        return nil, lookup(err, "utilisateur")
    }
    return u.Competences, nil
}

// SetCompetences replaces the caller's competences by reference ids.
// Entries already present keep their level and experience.
func (s *ProfessionalService) SetCompetences(ctx context.Context, caller policy.Caller, ids []uint64) ([]model.UserCompetence, error) {
    if err := s.gate.Authorize(ctx, caller, policy.ProfessionalProfile, nil); err != nil {
        return nil, err
    }
    ids = uniqueIDs(ids)
    if len(ids) == 0 {
        return nil, invalidField("competences", "required")
    }
    found, err := s.refs.CompetencesByIDs(ctx, ids)
    if err != nil {
        return nil, err
    }
    if len(found) != len(ids) {
        return nil, invalidField("competences", "not_found")
    }
    u, err := s.users.GetProfile(ctx, caller.ID)
    if err != nil {
        return nil, lookup(err, "utilisateur")
    }
    existing := make(map[uint64]model.UserCompetence, len(u.Competences))
    for _, c := range u.Competences {
        existing[c.CompetenceID] = c
    }
    entries := make([]model.UserCompetence, 0, len(ids))
    for _, id := range ids {
        e := model.UserCompetence{CompetenceID: id, Niveau: model.NiveauIntermediaire}
        if prev, ok := existing[id]; ok {
            e.Niveau, e.AnneesExperience = prev.Niveau, prev.AnneesExperience
        }
        entries = append(entries, e)
    }
    if err := s.users.ReplaceCompetences(ctx, caller.ID, entries); err != nil {
        return nil, err
    }
    return s.Competences(ctx, caller)
}

// Badges derives the caller's badges from validated documents and the
// size of the competence list.
func (s *ProfessionalService) Badges(ctx context.Context, caller policy.Caller) ([]Badge, error) {
    if err := s.gate.Authorize(ctx, caller, policy.ProfessionalProfile, nil); err != nil {
        return nil, err
    }
    cni, err := s.docs.HasValid(ctx, caller.ID, "cni")
    if err != nil {
        return nil, err
    }
    diplome, err := s.docs.HasValid(ctx, caller.ID, "diplome")
    if err != nil {
        return nil, err
    }
    n, err := s.users.CountCompetences(ctx, caller.ID)
    if err != nil {
        return nil, err
    }
    return []Badge{
        {Type: "identite_verifiee", Obtenu: cni, Description: "Identité vérifiée"},
        {Type: "professionnel_certifie", Obtenu: diplome, Description: "Professionnel certifié"},
        {Type: "expert", Obtenu: n >= ExpertThreshold, Description: fmt.Sprintf("Expert (%d+ compétences)", ExpertThreshold)},
    }, nil
}

func uniqueIDs(ids []uint64) []uint64 {
    seen := make(map[uint64]bool, len(ids))
    out := make([]uint64, 0, len(ids))
    for _, id := range ids {
        if id == 0 || seen[id] {
            continue
        }
        seen[id] = true
        out = append(out, id)
    }
    return out
}
