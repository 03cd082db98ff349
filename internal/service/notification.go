package service

import (
    "context"
    "encoding/json"
    "strings"

    "gorm.io/datatypes"
    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// NotificationInput is an admin-authored notification.
type NotificationInput struct {
    UserID  uint64
    Type    string
    Titre   string
    Message string
    Lien    string
    Data    map[string]any
}

// NotificationService serves a user's own notifications.
type NotificationService struct {
    repo  *repository.NotificationRepo
    users *repository.UserRepo
    gate  *policy.Gate
    now   Clock
}

func NewNotificationService(db *gorm.DB, gate *policy.Gate) *NotificationService {
    return &NotificationService{
        repo:  repository.NewNotificationRepo(db),
        users: repository.NewUserRepo(db),
        gate:  gate,
        now:   utcNow,
    }
}

// List pages through the caller's notifications; lu filters on the read
// flag when set.
func (s *NotificationService) List(ctx context.Context, caller policy.Caller, lu *bool, p repository.Page) (repository.Paged[model.Notification], error) {
    if caller.IsZero() {
        return repository.Paged[model.Notification]{}, ErrUnauthenticated
    }
    return s.repo.List(ctx, caller.ID, lu, p)
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller policy.Caller) (int64, error) {
    if caller.IsZero() {
        return 0, ErrUnauthenticated
    }
    return s.repo.UnreadCount(ctx, caller.ID)
}

func (s *NotificationService) Stats(ctx context.Context, caller policy.Caller) (repository.NotificationStats, error) {
    if caller.IsZero() {
        return repository.NotificationStats{}, ErrUnauthenticated
    }
    return s.repo.Stats(ctx, caller.ID)
}

// Get returns one notification of the caller.
func (s *NotificationService) Get(ctx context.Context, caller policy.Caller, id uint64) (model.Notification, error) {
    n, err := s.repo.GetByID(ctx, id)
    if err != nil {
        return model.Notification{}, lookup(err, "notification")
    }
    if err := s.gate.Authorize(ctx, caller, policy.NotificationManage, n); err != nil {
        return model.Notification{}, err
    }
    return n, nil
}

// MarkRead flags a notification read; repeated calls keep the first
// date_lecture.
func (s *NotificationService) MarkRead(ctx context.Context, caller policy.Caller, id uint64) (model.Notification, error) {
    n, err := s.Get(ctx, caller, id)
    if err != nil {
        return model.Notification{}, err
    }
    if n.Lu {
        return n, nil
    }
    if err := s.repo.MarkRead(ctx, n.ID, s.now()); err != nil {
        return model.Notification{}, err
    }
    return s.Get(ctx, caller, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller policy.Caller) (int64, error) {
    if caller.IsZero() {
        return 0, ErrUnauthenticated
    }
    return s.repo.MarkAllRead(ctx, caller.ID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, caller policy.Caller, id uint64) error {
    n, err := s.Get(ctx, caller, id)
    if err != nil {
        return err
    }
    return s.repo.Delete(ctx, n.ID)
}

func (s *NotificationService) DeleteAll(ctx context.Context, caller policy.Caller) (int64, error) {
    if caller.IsZero() {
        return 0, ErrUnauthenticated
    }
    return s.repo.DeleteAll(ctx, caller.ID)
}

// Create lets an admin address a notification to any user.
func (s *NotificationService) Create(ctx context.Context, caller policy.Caller, in NotificationInput) (model.Notification, error) {
    if err := s.gate.Authorize(ctx, caller, policy.NotificationCreate, nil); err != nil {
        return model.Notification{}, err
    }
    if in.Type == "" {
        in.Type = model.NotifSysteme
    }
    v := validation.Violations{}
    validation.PositiveID("user_id", in.UserID, v)
    validation.MaxLen("type", in.Type, 50, v)
    validation.Required("titre", in.Titre, v)
    validation.MaxLen("titre", in.Titre, 255, v)
    validation.Required("message", in.Message, v)
    validation.MaxLen("lien", in.Lien, 255, v)
    if in.UserID != 0 {
        ok, err := s.users.Exists(ctx, in.UserID)
        if err != nil {
            return model.Notification{}, err
        }
        if !ok {
            v.Add("user_id", "not_found")
        }
    }
    if err := invalid(v); err != nil {
        return model.Notification{}, err
    }
    n := model.Notification{
        UserID:  in.UserID,
        Type:    in.Type,
        Titre:   strings.TrimSpace(in.Titre),
        Message: strings.TrimSpace(in.Message),
        Lien:    in.Lien,
    }
    if len(in.Data) > 0 {
        raw, err := json.Marshal(in.Data)
        if err != nil {
            return model.Notification{}, invalidField("data", "invalid")
        }
        n.Data = datatypes.JSON(raw)
    }
    if err := s.repo.Create(ctx, &n); err != nil {
        return model.Notification{}, err
    }
    return n, nil
}
