package service

import "github.com/iliyamo/kmerpro-marketplace/internal/model"

// professionalMoves lists the targets a professional may pick from each
// status.  acceptee -> en_cours is also taken by payment confirmation.
var professionalMoves = map[model.DemandeStatus][]model.DemandeStatus{
    model.DemandePending:    {model.DemandeAccepted, model.DemandeRefused},
    model.DemandeAccepted:   {model.DemandeInProgress},
    model.DemandeInProgress: {model.DemandeDone},
}

// cancellable lists the statuses a client may cancel from.
var cancellable = []model.DemandeStatus{
    model.DemandePending,
    model.DemandeAccepted,
    model.DemandeInProgress,
}

// transitionTargets is every status accepted as input by Transition.
var transitionTargets = []string{
    string(model.DemandeAccepted),
    string(model.DemandeRefused),
    string(model.DemandeInProgress),
    string(model.DemandeDone),
}

// normalizeStatus folds input synonyms onto stored statuses.
func normalizeStatus(s string) model.DemandeStatus {
    st := model.DemandeStatus(s)
    if st == model.DemandeComplete {
        return model.DemandeDone
    }
    return st
}

// CanTransition reports whether a professional may move a demande from
// one status to another.
func CanTransition(from, to model.DemandeStatus) bool {
    for _, t := range professionalMoves[from] {
        if t == to {
            return true
        }
    }
    return false
}

// CanCancel reports whether a client may cancel from status s.
func CanCancel(s model.DemandeStatus) bool {
    for _, c := range cancellable {
        if c == s {
            return true
        }
    }
    return false
}
