package service

import (
    "context"
    "errors"
    "strings"

    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/queue"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// MessageInput is a message about to be sent.
type MessageInput struct {
    DestinataireID uint64
    Contenu        string
    DemandeID      *uint64
    Attachments    []storage.File
}

// Conversation summarises the exchange with one peer.
type Conversation struct {
    Peer        model.User    `json:"user"`
    LastMessage model.Message `json:"last_message"`
    UnreadCount int64         `json:"unread_count"`
}

// MessageService handles direct messages between users.
type MessageService struct {
    messages *repository.MessageRepo
    users    *repository.UserRepo
    demandes *repository.DemandeRepo
    store    storage.BlobStore
    gate     *policy.Gate
    notifier *Notifier
    events   EventPublisher
    now      Clock
}

func NewMessageService(db *gorm.DB, store storage.BlobStore, gate *policy.Gate, notifier *Notifier, events EventPublisher) *MessageService {
    return &MessageService{
        messages: repository.NewMessageRepo(db),
        users:    repository.NewUserRepo(db),
        demandes: repository.NewDemandeRepo(db),
        store:    store,
        gate:     gate,
        notifier: notifier,
        events:   events,
        now:      utcNow,
    }
}

// Send stores a message and its attachments.  Any two existing users may
// write to each other; a linked demande must involve the sender.
func (s *MessageService) Send(ctx context.Context, caller policy.Caller, in MessageInput) (model.Message, error) {
    if caller.IsZero() {
        return model.Message{}, ErrUnauthenticated
    }
    v := validation.Violations{}
    validation.PositiveID("destinataire_id", in.DestinataireID, v)
    if in.DestinataireID != 0 && in.DestinataireID == caller.ID {
        v.Add("destinataire_id", "self")
    }
    validation.Required("contenu", in.Contenu, v)
    validation.MaxLen("contenu", in.Contenu, model.MaxMessageLength, v)
    if len(in.Attachments) > model.MaxAttachmentsPerMsg {
        v.Add("pieces_jointes", "too_many")
    }
    for _, f := range in.Attachments {
        if f.Size > model.MaxAttachmentBytes {
            v.Add("pieces_jointes", "too_large")
        }
    }
    if _, bad := v["destinataire_id"]; !bad {
        ok, err := s.users.Exists(ctx, in.DestinataireID)
        if err != nil {
            return model.Message{}, err
        }
        if !ok {
            v.Add("destinataire_id", "not_found")
        }
    }
    if in.DemandeID != nil {
        ok, err := s.demandes.IsParty(ctx, *in.DemandeID, caller.ID)
        if err != nil {
            return model.Message{}, err
        }
        if !ok {
            v.Add("demande_id", "not_found")
        }
    }
    if err := invalid(v); err != nil {
        return model.Message{}, err
    }
    if len(in.Attachments) > 0 && s.store == nil {
        return model.Message{}, errors.New("attachment storage not configured")
    }

    keys, err := putFiles(ctx, s.store, "messages", in.Attachments)
    if err != nil {
        return model.Message{}, err
    }
    m := model.Message{
        ExpediteurID:   caller.ID,
        DestinataireID: in.DestinataireID,
        DemandeID:      in.DemandeID,
        Contenu:        strings.TrimSpace(in.Contenu),
    }
    for i, f := range in.Attachments {
        m.Attachments = append(m.Attachments, model.MessageAttachment{
            Nom:    f.Name,
            Chemin: keys[i],
            Type:   f.ContentType,
            Taille: f.Size,
        })
    }
    if err := s.messages.Create(ctx, &m); err != nil {
        dropBlobs(ctx, s.store, keys)
        return model.Message{}, err
    }
    s.notifier.MessageReceived(ctx, m)
    publish(ctx, s.events, queue.NewEvent("message.envoye", "message", m.ID, caller.ID, ""))
    return s.Get(ctx, caller, m.ID)
}

// Get returns a message visible to caller.  Opening an unread incoming
// message marks it read.
func (s *MessageService) Get(ctx context.Context, caller policy.Caller, id uint64) (model.Message, error) {
    m, err := s.messages.GetByID(ctx, id)
    if err != nil {
        return model.Message{}, lookup(err, "message")
    }
    if err := s.gate.Authorize(ctx, caller, policy.MessageView, m); err != nil {
        return model.Message{}, err
    }
    if m.DestinataireID == caller.ID && !m.Lu {
        now := s.now()
        if changed, err := s.messages.MarkRead(ctx, m.ID, now); err != nil {
            return model.Message{}, err
        } else if changed {
            m.Lu, m.DateLecture = true, &now
        }
    }
    s.resolve(ctx, &m)
    return m, nil
}

// MarkRead flags a message read by its recipient.  Repeated calls keep
// the first read time.
func (s *MessageService) MarkRead(ctx context.Context, caller policy.Caller, id uint64) (model.Message, error) {
    m, err := s.messages.GetByID(ctx, id)
    if err != nil {
        return model.Message{}, lookup(err, "message")
    }
    if err := s.gate.Authorize(ctx, caller, policy.MessageMarkRead, m); err != nil {
        return model.Message{}, err
    }
    if !m.Lu {
        if _, err := s.messages.MarkRead(ctx, m.ID, s.now()); err != nil {
            return model.Message{}, err
        }
        if m, err = s.messages.GetByID(ctx, id); err != nil {
            return model.Message{}, err
        }
    }
    s.resolve(ctx, &m)
    return m, nil
}

// MarkAllRead flags every incoming message of caller read.
func (s *MessageService) MarkAllRead(ctx context.Context, caller policy.Caller) (int64, error) {
    if caller.IsZero() {
        return 0, ErrUnauthenticated
    }
    return s.messages.MarkAllRead(ctx, caller.ID, s.now())
}

// Conversation returns the messages exchanged with peer, oldest first,
// after marking the caller's unread incoming ones read.
func (s *MessageService) Conversation(ctx context.Context, caller policy.Caller, peerID uint64) ([]model.Message, error) {
    if caller.IsZero() {
        return nil, ErrUnauthenticated
    }
    ok, err := s.users.Exists(ctx, peerID)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, notFound("utilisateur")
    }
    if _, err := s.messages.MarkReadFrom(ctx, peerID, caller.ID, s.now()); err != nil {
        return nil, err
    }
    msgs, err := s.messages.Between(ctx, caller.ID, peerID)
    if err != nil {
        return nil, err
    }
    for i := range msgs {
        s.resolve(ctx, &msgs[i])
    }
    return msgs, nil
}

// Conversations lists the caller's peers with the last message and the
// number of unread incoming messages, most recent first.
func (s *MessageService) Conversations(ctx context.Context, caller policy.Caller) ([]Conversation, error) {
    if caller.IsZero() {
        return nil, ErrUnauthenticated
    }
    rows, err := s.messages.Conversations(ctx, caller.ID)
    if err != nil {
        return nil, err
    }
    peerIDs := make([]uint64, 0, len(rows))
    lastIDs := make([]uint64, 0, len(rows))
    for _, r := range rows {
        peerIDs = append(peerIDs, r.PeerID)
        lastIDs = append(lastIDs, r.LastID)
    }
    peers, err := s.users.FindByIDs(ctx, peerIDs)
    if err != nil {
        return nil, err
    }
    last, err := s.messages.FindByIDs(ctx, lastIDs)
    if err != nil {
        return nil, err
    }
    out := make([]Conversation, 0, len(rows))
    for _, r := range rows {
        m := last[r.LastID]
        s.resolve(ctx, &m)
        out = append(out, Conversation{Peer: peers[r.PeerID], LastMessage: m, UnreadCount: r.UnreadCount})
    }
    return out, nil
}

// List pages through everything the caller sent or received.
func (s *MessageService) List(ctx context.Context, caller policy.Caller, p repository.Page) (repository.Paged[model.Message], error) {
    if caller.IsZero() {
        return repository.Paged[model.Message]{}, ErrUnauthenticated
    }
    out, err := s.messages.ListForUser(ctx, caller.ID, p)
    if err != nil {
        return out, err
    }
    for i := range out.Data {
        s.resolve(ctx, &out.Data[i])
    }
    return out, nil
}

// UnreadCount counts the caller's unread incoming messages.
func (s *MessageService) UnreadCount(ctx context.Context, caller policy.Caller) (int64, error) {
    if caller.IsZero() {
        return 0, ErrUnauthenticated
    }
    return s.messages.UnreadCount(ctx, caller.ID)
}

// Delete soft-deletes a message of the caller and removes its blobs.
func (s *MessageService) Delete(ctx context.Context, caller policy.Caller, id uint64) error {
    m, err := s.messages.GetByID(ctx, id)
    if err != nil {
        return lookup(err, "message")
    }
    if err := s.gate.Authorize(ctx, caller, policy.MessageDelete, m); err != nil {
        return err
    }
    if err := s.messages.SoftDelete(ctx, m.ID); err != nil {
        return lookup(err, "message")
    }
    keys := make([]string, 0, len(m.Attachments))
    for _, a := range m.Attachments {
        keys = append(keys, a.Chemin)
    }
    dropBlobs(ctx, s.store, keys)
    publish(ctx, s.events, queue.NewEvent("message.supprime", "message", m.ID, caller.ID, ""))
    return nil
}

func (s *MessageService) resolve(ctx context.Context, m *model.Message) {
    for i := range m.Attachments {
        m.Attachments[i].URL = blobURL(ctx, s.store, m.Attachments[i].Chemin)
    }
}
