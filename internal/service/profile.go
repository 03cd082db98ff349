package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// ProfileUpdate carries the profile fields to change; nil means unchanged.
type ProfileUpdate struct {
    Nom       *string
    Prenom    *string
    Telephone *string
    Adresse   *string
    Ville     *string
    Bio       *string
    Photo     *storage.File
}

// DiplomaInput is one diploma added to a profile.
type DiplomaInput struct {
    Titre       string
    Institution string
    Annee       int
    File        *storage.File
}

// ProfileService reads and edits the caller's own profile.
type ProfileService struct {
    db       *gorm.DB
    users    *repository.UserRepo
    services *repository.ServiceRepo
    store    storage.BlobStore
    now      Clock
}

func NewProfileService(db *gorm.DB, store storage.BlobStore) *ProfileService {
    return &ProfileService{
        db:       db,
        users:    repository.NewUserRepo(db),
        services: repository.NewServiceRepo(db),
        store:    store,
        now:      utcNow,
    }
}

// Me returns the caller with skills and diplomas.
func (s *ProfileService) Me(ctx context.Context, caller policy.Caller) (model.User, error) {
    if caller.IsZero() {
        return model.User{}, ErrUnauthenticated
    }
    u, err := s.users.GetProfile(ctx, caller.ID)
    if err != nil {
        return model.User{}, lookup(err, "utilisateur")
    }
    u.PhotoURL = blobURL(ctx, s.store, u.Photo)
    return u, nil
}

// Update edits profile fields and optionally replaces the photo.
func (s *ProfileService) Update(ctx context.Context, caller policy.Caller, in ProfileUpdate) (model.User, error) {
    current, err := s.Me(ctx, caller)
    if err != nil {
        return model.User{}, err
    }
    v := validation.Violations{}
    fields := map[string]any{}
    text := func(field string, val *string, required bool, max int) {
        if val == nil {
            return
        }
        if required {
            validation.Required(field, *val, v)
        }
        validation.MaxLen(field, *val, max, v)
        fields[field] = strings.TrimSpace(*val)
    }
    text("nom", in.Nom, true, 100)
    text("prenom", in.Prenom, false, 100)
    text("telephone", in.Telephone, false, 30)
    text("adresse", in.Adresse, false, 255)
    text("ville", in.Ville, false, 100)
    text("bio", in.Bio, false, 2000)
    if in.Photo != nil {
        if !storage.IsImage(in.Photo.ContentType) {
            v.Add("photo", "not_an_image")
        }
        if in.Photo.Size > model.MaxAttachmentBytes {
            v.Add("photo", "too_large")
        }
    }
    if err := invalid(v); err != nil {
        return model.User{}, err
    }

    var newKey string
    if in.Photo != nil {
        if s.store == nil {
            return model.User{}, errors.New("photo storage not configured")
        }
        keys, err := putFiles(ctx, s.store, fmt.Sprintf("profiles/%d", caller.ID), []storage.File{*in.Photo})
        if err != nil {
            return model.User{}, err
        }
        newKey = keys[0]
        fields["photo"] = newKey
    }
    if err := s.users.UpdateProfile(ctx, caller.ID, fields); err != nil {
        dropBlobs(ctx, s.store, []string{newKey})
        return model.User{}, lookup(err, "utilisateur")
    }
    if newKey != "" && current.Photo != "" {
        dropBlobs(ctx, s.store, []string{current.Photo})
    }
    return s.Me(ctx, caller)
}

// ReplaceCompetences swaps the caller's typed skills list.
func (s *ProfileService) ReplaceCompetences(ctx context.Context, caller policy.Caller, in []SkillInput) (model.User, error) {
    if caller.IsZero() {
        return model.User{}, ErrUnauthenticated
    }
    skills := normalizeSkills(in)
    v := validation.Violations{}
    validateSkills("competences", skills, v)
    if err := invalid(v); err != nil {
        return model.User{}, err
    }
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        refs := s.services.WithTx(tx)
        entries := make([]model.UserCompetence, 0, len(skills))
        for _, sk := range skills {
            c, err := refs.FindOrCreateCompetence(ctx, sk.Nom)
            if err != nil {
                return err
            }
            entries = append(entries, model.UserCompetence{
                CompetenceID:     c.ID,
                Niveau:           sk.Niveau,
                AnneesExperience: sk.AnneesExperience,
            })
        }
        return (&repository.UserRepo{DB: tx}).ReplaceCompetences(ctx, caller.ID, entries)
    })
    if err != nil {
        return model.User{}, err
    }
    return s.Me(ctx, caller)
}

// AddDiploma appends a diploma, storing its scan when given.
func (s *ProfileService) AddDiploma(ctx context.Context, caller policy.Caller, in DiplomaInput) (model.Diploma, error) {
    if caller.IsZero() {
        return model.Diploma{}, ErrUnauthenticated
    }
    v := validation.Violations{}
    validation.Required("titre", in.Titre, v)
    validation.MaxLen("titre", in.Titre, 150, v)
    validation.MaxLen("institution", in.Institution, 150, v)
    if in.Annee != 0 {
        validation.RangeInt("annee", in.Annee, 1950, s.now().Year(), v)
    }
    if in.File != nil {
        checkDocumentFile("document", *in.File, v)
    }
    if err := invalid(v); err != nil {
        return model.Diploma{}, err
    }
    d := model.Diploma{
        UserID:      caller.ID,
        Titre:       strings.TrimSpace(in.Titre),
        Institution: strings.TrimSpace(in.Institution),
        Annee:       in.Annee,
    }
    if in.File != nil {
        if s.store == nil {
            return model.Diploma{}, errors.New("document storage not configured")
        }
        keys, err := putFiles(ctx, s.store, fmt.Sprintf("diplomes/%d", caller.ID), []storage.File{*in.File})
        if err != nil {
            return model.Diploma{}, err
        }
        d.Document = keys[0]
    }
    if err := s.users.AddDiploma(ctx, &d); err != nil {
        dropBlobs(ctx, s.store, []string{d.Document})
        return model.Diploma{}, err
    }
    return d, nil
}

// checkDocumentFile accepts PDFs and images up to the attachment limit.
func checkDocumentFile(field string, f storage.File, v validation.Violations) {
    ct := strings.ToLower(f.ContentType)
    if !storage.IsImage(ct) && ct != "application/pdf" {
        v.Add(field, "invalid_type")
    }
    if f.Size > model.MaxAttachmentBytes {
        v.Add(field, "too_large")
    }
}
