package service

import (
    "context"
    "errors"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
)

// FavoriService manages a user's bookmarked services.
type FavoriService struct {
    favoris  *repository.FavoriRepo
    services *repository.ServiceRepo
    gate     *policy.Gate
}

func NewFavoriService(db *gorm.DB, gate *policy.Gate) *FavoriService {
    return &FavoriService{
        favoris:  repository.NewFavoriRepo(db),
        services: repository.NewServiceRepo(db),
        gate:     gate,
    }
}

func (s *FavoriService) List(ctx context.Context, caller policy.Caller, p repository.Page) (repository.Paged[model.Favori], error) {
    if err := s.gate.Authorize(ctx, caller, policy.FavoriManage, nil); err != nil {
        return repository.Paged[model.Favori]{}, err
    }
    return s.favoris.List(ctx, caller.ID, p)
}

// Add bookmarks a service.  Bookmarking it twice is an InvalidState.
func (s *FavoriService) Add(ctx context.Context, caller policy.Caller, serviceID uint64) (model.Favori, error) {
    if err := s.gate.Authorize(ctx, caller, policy.FavoriManage, nil); err != nil {
        return model.Favori{}, err
    }
    svc, err := s.services.GetBare(ctx, serviceID)
    if err != nil {
        return model.Favori{}, lookup(err, "service")
    }
    f, err := s.favoris.Add(ctx, caller.ID, svc.ID)
    if errors.Is(err, repository.ErrConflict) {
        return model.Favori{}, InvalidState("ce service est déjà dans vos favoris")
    }
    if err != nil {
        return model.Favori{}, err
    }
    f.Service = &svc
    return f, nil
}

// Remove drops a bookmark; NotFound when there was none.
func (s *FavoriService) Remove(ctx context.Context, caller policy.Caller, serviceID uint64) error {
    if err := s.gate.Authorize(ctx, caller, policy.FavoriManage, nil); err != nil {
        return err
    }
    return lookup(s.favoris.Remove(ctx, caller.ID, serviceID), "favori")
}
