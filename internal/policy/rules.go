package policy

import "github.com/iliyamo/kmerpro-marketplace/internal/model"

// Action names an operation subject to authorization.
type Action string

const (
    ServiceCreate Action = "service.create"
    ServiceUpdate Action = "service.update"
    ServiceDelete Action = "service.delete"

    DemandeCreate       Action = "demande.create"
    DemandeView         Action = "demande.view"
    DemandeTransition   Action = "demande.transition"
    DemandeCancel       Action = "demande.cancel"
    DemandeRate         Action = "demande.rate"
    DemandeListSent     Action = "demande.list_sent"
    DemandeListReceived Action = "demande.list_received"

    PaymentInitiate Action = "payment.initiate"
    PaymentConfirm  Action = "payment.confirm"
    PaymentCancel   Action = "payment.cancel"
    PaymentDelete   Action = "payment.delete"
    PaymentView     Action = "payment.view"

    MessageView     Action = "message.view"
    MessageMarkRead Action = "message.mark_read"
    MessageDelete   Action = "message.delete"

    NotificationCreate Action = "notification.create"
    NotificationManage Action = "notification.manage"

    FavoriManage Action = "favori.manage"

    DocumentSubmit   Action = "document.submit"
    DocumentValidate Action = "document.validate"

    ProfessionalProfile Action = "professional.profile"
    StatsGlobal         Action = "stats.global"
)

// Relation is the link a caller must have with the target record.
type Relation int

const (
    AnyRecord Relation = iota
    Owner
    ClientOf
    ProfessionalOf
    EitherParty
    SenderOf
    RecipientOf
    SenderOrRecipient
)

// Rule is one row of the authorization table.
type Rule struct {
    Roles []model.Role
    // Relation is checked against the resource; AnyRecord skips it.
    Relation Relation
    // AdminBypass lets admins skip the relation check.
    AdminBypass bool
}

var (
    clients       = []model.Role{model.RoleClient}
    professionals = []model.Role{model.RoleProfessionnel}
    admins        = []model.Role{model.RoleAdmin}
    everyone      = []model.Role{model.RoleClient, model.RoleProfessionnel, model.RoleAdmin}
)

// DefaultRules is the role-to-action matrix of the marketplace.
func DefaultRules() map[Action]Rule {
    return map[Action]Rule{
        ServiceCreate: {Roles: professionals},
        ServiceUpdate: {Roles: professionals, Relation: Owner},
        ServiceDelete: {Roles: professionals, Relation: Owner},

        DemandeCreate:       {Roles: clients},
        DemandeView:         {Roles: everyone, Relation: EitherParty, AdminBypass: true},
        DemandeTransition:   {Roles: professionals, Relation: ProfessionalOf},
        DemandeCancel:       {Roles: clients, Relation: ClientOf},
        DemandeRate:         {Roles: clients, Relation: ClientOf},
        DemandeListSent:     {Roles: clients},
        DemandeListReceived: {Roles: professionals},

        PaymentInitiate: {Roles: clients, Relation: ClientOf},
        PaymentConfirm:  {Roles: professionals, Relation: ProfessionalOf},
        PaymentCancel:   {Roles: clients, Relation: ClientOf},
        PaymentDelete:   {Roles: clients, Relation: ClientOf},
        PaymentView:     {Roles: everyone, Relation: EitherParty, AdminBypass: true},

        MessageView:     {Roles: everyone, Relation: SenderOrRecipient},
        MessageMarkRead: {Roles: everyone, Relation: RecipientOf},
        MessageDelete:   {Roles: everyone, Relation: SenderOf},

        NotificationCreate: {Roles: admins},
        NotificationManage: {Roles: everyone, Relation: Owner},

        FavoriManage: {Roles: everyone},

        DocumentSubmit:   {Roles: professionals},
        DocumentValidate: {Roles: admins},

        ProfessionalProfile: {Roles: professionals},
        StatsGlobal:         {Roles: admins},
    }
}

func (r Rule) allows(c Caller, resource any) bool {
    if !hasRole(r.Roles, c.Role) {
        return false
    }
    if r.Relation == AnyRecord {
        return true
    }
    if r.AdminBypass && c.Role == model.RoleAdmin {
        return true
    }
    return related(r.Relation, c.ID, resource)
}

func hasRole(roles []model.Role, role model.Role) bool {
    for _, r := range roles {
        if r == role {
            return true
        }
    }
    return false
}

func related(rel Relation, uid uint64, resource any) bool {
    switch rel {
    case Owner:
        if o, ok := resource.(Owned); ok {
            return o.OwnerID() == uid
        }
    case ClientOf, ProfessionalOf, EitherParty:
        p, ok := resource.(TwoParty)
        if !ok {
            return false
        }
        switch rel {
        case ClientOf:
            return p.ClientParty() == uid
        case ProfessionalOf:
            return p.ProfessionalParty() == uid
        default:
            return p.ClientParty() == uid || p.ProfessionalParty() == uid
        }
    case SenderOf, RecipientOf, SenderOrRecipient:
        a, ok := resource.(Addressed)
        if !ok {
            return false
        }
        switch rel {
        case SenderOf:
            return a.SenderParty() == uid
        case RecipientOf:
            return a.RecipientParty() == uid
        default:
            return a.SenderParty() == uid || a.RecipientParty() == uid
        }
    }
    return false
}
