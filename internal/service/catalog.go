package service

import (
    "context"
    "errors"
    "fmt"
    "strconv"
    "strings"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// SkillInput is one skill entry of a service or profile.
type SkillInput struct {
    Nom              string `json:"nom"`
    Niveau           string `json:"niveau"`
    AnneesExperience int    `json:"annees_experience"`
}

// ServiceInput is the payload of a new listing.
type ServiceInput struct {
    Titre        string
    Description  string
    CategoryID   uint64
    Prix         float64
    UniteTemps   string
    DureeEstimee int
    Disponible   *bool
    Zones        []string
    Skills       []SkillInput
}

// ServiceUpdate carries the fields to change; nil means unchanged.
type ServiceUpdate struct {
    Titre        *string
    Description  *string
    CategoryID   *uint64
    Prix         *float64
    UniteTemps   *string
    DureeEstimee *int
    Disponible   *bool
    Zones        []string
    Skills       []SkillInput
}

// levelAliases accepts unaccented skill levels.
var levelAliases = map[string]string{
    "debutant":      model.NiveauDebutant,
    "intermediaire": model.NiveauIntermediaire,
}

// CatalogService manages service listings with their zones, skills and
// gallery.  Reads are public; writes belong to the owning professional.
type CatalogService struct {
    db       *gorm.DB
    services *repository.ServiceRepo
    refs     *repository.ReferenceRepo
    users    *repository.UserRepo
    store    storage.BlobStore
    gate     *policy.Gate
}

func NewCatalogService(db *gorm.DB, store storage.BlobStore, gate *policy.Gate) *CatalogService {
    return &CatalogService{
        db:       db,
        services: repository.NewServiceRepo(db),
        refs:     repository.NewReferenceRepo(db),
        users:    repository.NewUserRepo(db),
        store:    store,
        gate:     gate,
    }
}

// Create publishes a listing owned by the calling professional.
func (s *CatalogService) Create(ctx context.Context, caller policy.Caller, in ServiceInput) (model.Service, error) {
    if err := s.gate.Authorize(ctx, caller, policy.ServiceCreate, nil); err != nil {
        return model.Service{}, err
    }
    v := validation.Violations{}
    validation.Required("titre", in.Titre, v)
    validation.MaxLen("titre", in.Titre, 150, v)
    validation.Required("description", in.Description, v)
    validation.PositiveID("categorie_id", in.CategoryID, v)
    validation.MinFloat("prix", in.Prix, 0, v)
    validation.OneOf("unite_temps", in.UniteTemps, model.TimeUnits, v)
    validation.NonNegativeInt("duree_estimee", in.DureeEstimee, v)
    validateZones(in.Zones, v)
    skills := normalizeSkills(in.Skills)
    validateSkills("competences", skills, v)
    if err := s.checkCategory(ctx, in.CategoryID, v); err != nil {
        return model.Service{}, err
    }
    if err := invalid(v); err != nil {
        return model.Service{}, err
    }

    svc := model.Service{
        ProfessionnelID: caller.ID,
        CategoryID:      in.CategoryID,
        Titre:           strings.TrimSpace(in.Titre),
        Description:     strings.TrimSpace(in.Description),
        Prix:            in.Prix,
        UniteTemps:      in.UniteTemps,
        DureeEstimee:    in.DureeEstimee,
        Disponible:      in.Disponible == nil || *in.Disponible,
    }
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        repo := s.services.WithTx(tx)
        zones, err := repo.FindOrCreateZones(ctx, in.Zones)
        if err != nil {
            return err
        }
        rows, err := s.skillRows(ctx, repo, skills)
        if err != nil {
            return err
        }
        svc.Zones, svc.Skills = zones, rows
        return repo.Create(ctx, &svc)
    })
    if err != nil {
        return model.Service{}, err
    }
    return s.Get(ctx, svc.ID)
}

// Update changes the listed fields of an owned service.
func (s *CatalogService) Update(ctx context.Context, caller policy.Caller, id uint64, in ServiceUpdate) (model.Service, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return model.Service{}, err
    }
    v := validation.Violations{}
    fields := map[string]any{}
    if in.Titre != nil {
        validation.Required("titre", *in.Titre, v)
        validation.MaxLen("titre", *in.Titre, 150, v)
        fields["titre"] = strings.TrimSpace(*in.Titre)
    }
    if in.Description != nil {
        validation.Required("description", *in.Description, v)
        fields["description"] = strings.TrimSpace(*in.Description)
    }
    if in.CategoryID != nil {
        validation.PositiveID("categorie_id", *in.CategoryID, v)
        if err := s.checkCategory(ctx, *in.CategoryID, v); err != nil {
            return model.Service{}, err
        }
        fields["category_id"] = *in.CategoryID
    }
    if in.Prix != nil {
        validation.MinFloat("prix", *in.Prix, 0, v)
        fields["prix"] = *in.Prix
    }
    if in.UniteTemps != nil {
        validation.OneOf("unite_temps", *in.UniteTemps, model.TimeUnits, v)
        fields["unite_temps"] = *in.UniteTemps
    }
    if in.DureeEstimee != nil {
        validation.NonNegativeInt("duree_estimee", *in.DureeEstimee, v)
        fields["duree_estimee"] = *in.DureeEstimee
    }
    if in.Disponible != nil {
        fields["disponible"] = *in.Disponible
    }
    validateZones(in.Zones, v)
    skills := normalizeSkills(in.Skills)
    validateSkills("competences", skills, v)
    if err := invalid(v); err != nil {
        return model.Service{}, err
    }

    err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        repo := s.services.WithTx(tx)
        if err := repo.Update(ctx, svc.ID, fields); err != nil {
            return err
        }
        if in.Zones != nil {
            zones, err := repo.FindOrCreateZones(ctx, in.Zones)
            if err != nil {
                return err
            }
            if err := repo.ReplaceZones(ctx, svc.ID, zones); err != nil {
                return err
            }
        }
        if in.Skills != nil {
            rows, err := s.skillRows(ctx, repo, skills)
            if err != nil {
                return err
            }
            if err := repo.ReplaceSkills(ctx, svc.ID, rows); err != nil {
                return err
            }
        }
        return nil
    })
    if err != nil {
        return model.Service{}, err
    }
    return s.Get(ctx, svc.ID)
}

// Delete removes an owned service with its demandes, payments, gallery,
// skills and favoris, then drops the gallery blobs.
func (s *CatalogService) Delete(ctx context.Context, caller policy.Caller, id uint64) error {
    svc, err := s.owned(ctx, caller, policy.ServiceDelete, id)
    if err != nil {
        return err
    }
    paths, err := s.services.Delete(ctx, svc.ID)
    if err != nil {
        return lookup(err, "service")
    }
    dropBlobs(ctx, s.store, paths)
    return nil
}

// ToggleAvailability flips the disponible flag of an owned service.
func (s *CatalogService) ToggleAvailability(ctx context.Context, caller policy.Caller, id uint64) (model.Service, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return model.Service{}, err
    }
    if err := s.services.Update(ctx, svc.ID, map[string]any{"disponible": !svc.Disponible}); err != nil {
        return model.Service{}, err
    }
    return s.Get(ctx, svc.ID)
}

// Get returns a service with its details.
func (s *CatalogService) Get(ctx context.Context, id uint64) (model.Service, error) {
    svc, err := s.services.GetByID(ctx, id)
    if err != nil {
        return model.Service{}, lookup(err, "service")
    }
    s.resolve(ctx, &svc)
    return svc, nil
}

// ListAvailable pages through available services, newest first.
func (s *CatalogService) ListAvailable(ctx context.Context, p repository.Page) (repository.Paged[model.Service], error) {
    return s.resolvePage(ctx)(s.services.ListAvailable(ctx, p))
}

// ListByCategory accepts a category id or name.
func (s *CatalogService) ListByCategory(ctx context.Context, categorie string, p repository.Page) (repository.Paged[model.Service], error) {
    var catID uint64
    if id, err := strconv.ParseUint(categorie, 10, 64); err == nil {
        ok, err := s.refs.CategoryExists(ctx, id)
        if err != nil {
            return repository.Paged[model.Service]{}, err
        }
        if !ok {
            return repository.Paged[model.Service]{}, notFound("catégorie")
        }
        catID = id
    } else {
        c, err := s.refs.CategoryByName(ctx, categorie)
        if err != nil {
            return repository.Paged[model.Service]{}, lookup(err, "catégorie")
        }
        catID = c.ID
    }
    return s.resolvePage(ctx)(s.services.ListByCategory(ctx, catID, p))
}

// ListByOwner lists the services of one user.
func (s *CatalogService) ListByOwner(ctx context.Context, ownerID uint64, p repository.Page) (repository.Paged[model.Service], error) {
    ok, err := s.users.Exists(ctx, ownerID)
    if err != nil {
        return repository.Paged[model.Service]{}, err
    }
    if !ok {
        return repository.Paged[model.Service]{}, notFound("utilisateur")
    }
    return s.resolvePage(ctx)(s.services.ListByOwner(ctx, ownerID, p))
}

// Search filters the catalog.
func (s *CatalogService) Search(ctx context.Context, q repository.ServiceSearchQuery) (repository.Paged[model.Service], error) {
    v := validation.Violations{}
    if q.PrixMin != nil {
        validation.MinFloat("prix_min", *q.PrixMin, 0, v)
    }
    if q.PrixMax != nil {
        validation.MinFloat("prix_max", *q.PrixMax, 0, v)
        if q.PrixMin != nil && *q.PrixMax < *q.PrixMin {
            v.Add("prix_max", "too_small")
        }
    }
    if q.SortBy != "" {
        validation.OneOf("sort_by", q.SortBy, []string{"created_at", "prix", "titre"}, v)
    }
    if q.SortDirection != "" {
        validation.OneOf("sort_direction", strings.ToLower(q.SortDirection), []string{"asc", "desc"}, v)
    }
    if err := invalid(v); err != nil {
        return repository.Paged[model.Service]{}, err
    }
    return s.resolvePage(ctx)(s.services.Search(ctx, q))
}

// --- zones ---

// EditZones replaces, adds or removes zones of an owned service by name.
// op is one of "replace", "add" or "remove".
func (s *CatalogService) EditZones(ctx context.Context, caller policy.Caller, id uint64, op string, names []string) (model.Service, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return model.Service{}, err
    }
    v := validation.Violations{}
    if op != "replace" && len(names) == 0 {
        v.Add("zones", "required")
    }
    validateZones(names, v)
    if err := invalid(v); err != nil {
        return model.Service{}, err
    }
    err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        repo := s.services.WithTx(tx)
        if op == "remove" {
            return repo.RemoveZones(ctx, svc.ID, trimAll(names))
        }
        zones, err := repo.FindOrCreateZones(ctx, names)
        if err != nil {
            return err
        }
        if op == "add" {
            return repo.AddZones(ctx, svc.ID, zones)
        }
        return repo.ReplaceZones(ctx, svc.ID, zones)
    })
    if err != nil {
        return model.Service{}, err
    }
    return s.Get(ctx, svc.ID)
}

// --- skills ---

// EditSkills replaces or adds typed skill entries of an owned service.
func (s *CatalogService) EditSkills(ctx context.Context, caller policy.Caller, id uint64, replace bool, in []SkillInput) (model.Service, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return model.Service{}, err
    }
    skills := normalizeSkills(in)
    v := validation.Violations{}
    if !replace && len(skills) == 0 {
        v.Add("competences", "required")
    }
    validateSkills("competences", skills, v)
    if err := invalid(v); err != nil {
        return model.Service{}, err
    }
    err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        repo := s.services.WithTx(tx)
        rows, err := s.skillRows(ctx, repo, skills)
        if err != nil {
            return err
        }
        if replace {
            return repo.ReplaceSkills(ctx, svc.ID, rows)
        }
        return repo.AddSkills(ctx, svc.ID, rows)
    })
    if err != nil {
        return model.Service{}, err
    }
    return s.Get(ctx, svc.ID)
}

// RemoveSkills drops skill entries of an owned service by name.
func (s *CatalogService) RemoveSkills(ctx context.Context, caller policy.Caller, id uint64, names []string) (model.Service, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return model.Service{}, err
    }
    names = trimAll(names)
    if len(names) == 0 {
        return model.Service{}, invalidField("competences", "required")
    }
    if err := s.services.RemoveSkills(ctx, svc.ID, names); err != nil {
        return model.Service{}, err
    }
    return s.Get(ctx, svc.ID)
}

// --- gallery ---

// Photos returns the gallery of a service in display order.
func (s *CatalogService) Photos(ctx context.Context, id uint64) ([]model.ServicePhoto, error) {
    if _, err := s.services.GetBare(ctx, id); err != nil {
        return nil, lookup(err, "service")
    }
    photos, err := s.services.Photos(ctx, id)
    if err != nil {
        return nil, err
    }
    for i := range photos {
        photos[i].URL = blobURL(ctx, s.store, photos[i].Chemin)
    }
    return photos, nil
}

// AddPhotos appends images to an owned service's gallery.  The whole
// upload is rejected when the gallery would exceed MaxGalleryPhotos.
func (s *CatalogService) AddPhotos(ctx context.Context, caller policy.Caller, id uint64, files []storage.File) ([]model.ServicePhoto, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return nil, err
    }
    v := validation.Violations{}
    if len(files) == 0 {
        v.Add("images", "required")
    }
    for _, f := range files {
        if !storage.IsImage(f.ContentType) {
            v.Add("images", "not_an_image")
        }
        if f.Size > model.MaxAttachmentBytes {
            v.Add("images", "too_large")
        }
    }
    n, err := s.services.CountPhotos(ctx, svc.ID)
    if err != nil {
        return nil, err
    }
    if int(n)+len(files) > model.MaxGalleryPhotos {
        v.Add("images", "gallery_full")
    }
    if err := invalid(v); err != nil {
        return nil, err
    }
    if s.store == nil {
        return nil, errors.New("photo storage not configured")
    }

    keys, err := putFiles(ctx, s.store, fmt.Sprintf("services/%d", svc.ID), files)
    if err != nil {
        return nil, err
    }
    photos, err := s.services.AppendPhotos(ctx, svc.ID, keys, model.MaxGalleryPhotos)
    if err != nil {
        dropBlobs(ctx, s.store, keys)
        if errors.Is(err, repository.ErrConflict) {
            return nil, invalidField("images", "gallery_full")
        }
        return nil, err
    }
    for i := range photos {
        photos[i].URL = blobURL(ctx, s.store, photos[i].Chemin)
    }
    return photos, nil
}

// DeletePhoto removes one gallery entry and its blob.
func (s *CatalogService) DeletePhoto(ctx context.Context, caller policy.Caller, id, photoID uint64) error {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return err
    }
    photo, err := s.services.GetPhoto(ctx, svc.ID, photoID)
    if err != nil {
        return lookup(err, "photo")
    }
    if err := s.services.DeletePhoto(ctx, photo.ID); err != nil {
        return err
    }
    dropBlobs(ctx, s.store, []string{photo.Chemin})
    return nil
}

// ReorderPhotos sets the gallery order.  ids must be a permutation of
// the current photo ids.
func (s *CatalogService) ReorderPhotos(ctx context.Context, caller policy.Caller, id uint64, ids []uint64) ([]model.ServicePhoto, error) {
    svc, err := s.owned(ctx, caller, policy.ServiceUpdate, id)
    if err != nil {
        return nil, err
    }
    current, err := s.services.Photos(ctx, svc.ID)
    if err != nil {
        return nil, err
    }
    if !isPermutation(current, ids) {
        return nil, invalidField("ordre", "not_a_permutation")
    }
    if err := s.services.ReorderPhotos(ctx, svc.ID, ids); err != nil {
        return nil, err
    }
    return s.Photos(ctx, svc.ID)
}

// --- helpers ---

// owned loads a service and checks caller may perform action on it.
func (s *CatalogService) owned(ctx context.Context, caller policy.Caller, action policy.Action, id uint64) (model.Service, error) {
    if caller.IsZero() {
        return model.Service{}, ErrUnauthenticated
    }
    svc, err := s.services.GetBare(ctx, id)
    if err != nil {
        return model.Service{}, lookup(err, "service")
    }
    if err := s.gate.Authorize(ctx, caller, action, svc); err != nil {
        return model.Service{}, err
    }
    return svc, nil
}

func (s *CatalogService) checkCategory(ctx context.Context, id uint64, v validation.Violations) error {
    if id == 0 {
        return nil
    }
    ok, err := s.refs.CategoryExists(ctx, id)
    if err != nil {
        return err
    }
    if !ok {
        v.Add("categorie_id", "not_found")
    }
    return nil
}

func (s *CatalogService) skillRows(ctx context.Context, repo *repository.ServiceRepo, in []SkillInput) ([]model.ServiceSkill, error) {
    rows := make([]model.ServiceSkill, 0, len(in))
    for _, sk := range in {
        c, err := repo.FindOrCreateCompetence(ctx, sk.Nom)
        if err != nil {
            return nil, err
        }
        rows = append(rows, model.ServiceSkill{
            CompetenceID:     c.ID,
            Nom:              c.Nom,
            Niveau:           sk.Niveau,
            AnneesExperience: sk.AnneesExperience,
        })
    }
    return rows, nil
}

func (s *CatalogService) resolve(ctx context.Context, svc *model.Service) {
    for i := range svc.Photos {
        svc.Photos[i].URL = blobURL(ctx, s.store, svc.Photos[i].Chemin)
    }
}

// resolvePage fills photo URLs of a page as it passes through.
func (s *CatalogService) resolvePage(ctx context.Context) func(repository.Paged[model.Service], error) (repository.Paged[model.Service], error) {
    return func(p repository.Paged[model.Service], err error) (repository.Paged[model.Service], error) {
        if err != nil {
            return p, err
        }
        for i := range p.Data {
            s.resolve(ctx, &p.Data[i])
        }
        return p, nil
    }
}

func validateZones(names []string, v validation.Violations) {
    for i, n := range names {
        field := fmt.Sprintf("zones.%d", i)
        validation.Required(field, n, v)
        validation.MaxLen(field, n, 100, v)
    }
}

// normalizeSkills trims names and maps unaccented levels.
func normalizeSkills(in []SkillInput) []SkillInput {
    if in == nil {
        return nil
    }
    out := make([]SkillInput, 0, len(in))
    for _, sk := range in {
        sk.Nom = strings.TrimSpace(sk.Nom)
        sk.Niveau = strings.ToLower(strings.TrimSpace(sk.Niveau))
        if alias, ok := levelAliases[sk.Niveau]; ok {
            sk.Niveau = alias
        }
        out = append(out, sk)
    }
    return out
}

func validateSkills(prefix string, skills []SkillInput, v validation.Violations) {
    seen := map[string]bool{}
    for i, sk := range skills {
        field := fmt.Sprintf("%s.%d", prefix, i)
        validation.Required(field+".nom", sk.Nom, v)
        validation.MaxLen(field+".nom", sk.Nom, 100, v)
        validation.OneOf(field+".niveau", sk.Niveau, model.SkillLevels, v)
        validation.NonNegativeInt(field+".annees_experience", sk.AnneesExperience, v)
        key := strings.ToLower(sk.Nom)
        if seen[key] {
            v.Add(field+".nom", "duplicate")
        }
        seen[key] = true
    }
}

func trimAll(in []string) []string {
    out := make([]string, 0, len(in))
    for _, s := range in {
        if s = strings.TrimSpace(s); s != "" {
            out = append(out, s)
        }
    }
    return out
}

func isPermutation(photos []model.ServicePhoto, ids []uint64) bool {
    if len(photos) != len(ids) {
        return false
    }
    want := make(map[uint64]bool, len(photos))
    for _, p := range photos {
        want[p.ID] = true
    }
    for _, id := range ids {
        if !want[id] {
            return false
        }
        delete(want, id)
    }
    return len(want) == 0
}
