package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// DemandeHandler serves booking requests and the payment initiation
// shortcut nested under them.
type DemandeHandler struct {
    Demandes *service.DemandeService
    Payments *service.PaymentService
}

func NewDemandeHandler(d *service.DemandeService, p *service.PaymentService) *DemandeHandler {
    return &DemandeHandler{Demandes: d, Payments: p}
}

type demandeReq struct {
    ServiceID   uint64   `json:"service_id"`
    Description string   `json:"description"`
    DateDebut   string   `json:"date_debut_souhaitee"`
    DateFin     string   `json:"date_fin_souhaitee"`
    Adresse     string   `json:"adresse_intervention"`
    Budget      *float64 `json:"budget_max"`
}

type statusReq struct {
    Statut      string `json:"statut"`
    Commentaire string `json:"commentaire"`
}

// dateLayouts are the accepted forms of date fields.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"}

// parseDate records field as invalid_date when raw matches no layout.
func parseDate(field, raw string, v validation.Violations) time.Time {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        v.Add(field, "required")
        return time.Time{}
    }
    for _, layout := range dateLayouts {
        if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
            return t.UTC()
        }
    }
    v.Add(field, "invalid_date")
    return time.Time{}
}

// Index lists the demandes visible to the caller, optionally by ?statut=.
func (h *DemandeHandler) Index(c echo.Context) error {
    out, err := h.Demandes.List(c.Request().Context(), caller(c), c.QueryParam("statut"), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *DemandeHandler) Mine(c echo.Context) error {
    out, err := h.Demandes.ListSent(c.Request().Context(), caller(c), c.QueryParam("statut"), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *DemandeHandler) Received(c echo.Context) error {
    out, err := h.Demandes.ListReceived(c.Request().Context(), caller(c), c.QueryParam("statut"), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *DemandeHandler) Store(c echo.Context) error {
    var req demandeReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    v := validation.Violations{}
    debut := parseDate("date_debut_souhaitee", req.DateDebut, v)
    fin := parseDate("date_fin_souhaitee", req.DateFin, v)
    if req.Budget == nil {
        v.Add("budget_max", "required")
    }
    if !v.Empty() {
        return respondError(c, &service.ValidationError{Fields: v})
    }
    d, err := h.Demandes.Create(c.Request().Context(), caller(c), service.DemandeInput{
        ServiceID:   req.ServiceID,
        Description: req.Description,
        DateDebut:   debut,
        DateFin:     fin,
        Adresse:     req.Adresse,
        Budget:      *req.Budget,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Demande créée avec succès", "demande": d})
}

func (h *DemandeHandler) Show(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    d, err := h.Demandes.Get(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"demande": d})
}

// Update moves a demande to {"statut": ...}; annulee goes through the
// cancellation rules.
func (h *DemandeHandler) Update(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req statusReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx := c.Request().Context()
    var (
        d   model.Demande
        err error
    )
    if strings.EqualFold(strings.TrimSpace(req.Statut), string(model.DemandeCancelled)) {
        d, err = h.Demandes.Cancel(ctx, caller(c), id, req.Commentaire)
    } else {
        d, err = h.Demandes.Transition(ctx, caller(c), id, req.Statut, req.Commentaire)
    }
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Statut de la demande mis à jour", "demande": d})
}

func (h *DemandeHandler) Cancel(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req struct {
        Raison string `json:"raison"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    d, err := h.Demandes.Cancel(c.Request().Context(), caller(c), id, req.Raison)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Demande annulée", "demande": d})
}

func (h *DemandeHandler) Rate(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req struct {
        Note        int    `json:"note"`
        Commentaire string `json:"commentaire"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    d, err := h.Demandes.Rate(c.Request().Context(), caller(c), id, req.Note, req.Commentaire)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Évaluation enregistrée", "demande": d})
}

// InitiatePayment opens a payment for the demande in the path.
func (h *DemandeHandler) InitiatePayment(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req paymentReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    p, err := h.Payments.Initiate(c.Request().Context(), caller(c), id, req.input())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Paiement initié avec succès", "paiement": p})
}
