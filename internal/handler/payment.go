package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

// PaymentHandler serves /paiements.
type PaymentHandler struct {
    Payments *service.PaymentService
}

func NewPaymentHandler(p *service.PaymentService) *PaymentHandler {
    return &PaymentHandler{Payments: p}
}

type paymentReq struct {
    DemandeID uint64         `json:"demande_id"`
    Montant   float64        `json:"montant"`
    Methode   string         `json:"methode_paiement"`
    Devise    string         `json:"devise"`
    Details   map[string]any `json:"details"`
}

func (r paymentReq) input() service.PaymentInput {
    return service.PaymentInput{Montant: r.Montant, Methode: r.Methode, Devise: r.Devise, Details: r.Details}
}

func (h *PaymentHandler) Index(c echo.Context) error {
    out, err := h.Payments.List(c.Request().Context(), caller(c), c.QueryParam("statut"), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Store initiates a payment for body.demande_id.
func (h *PaymentHandler) Store(c echo.Context) error {
    var req paymentReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.DemandeID == 0 {
        return respondError(c, &service.ValidationError{Fields: map[string]string{"demande_id": "required"}})
    }
    p, err := h.Payments.Initiate(c.Request().Context(), caller(c), req.DemandeID, req.input())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Paiement initié avec succès", "paiement": p})
}

func (h *PaymentHandler) Show(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    p, err := h.Payments.Get(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"paiement": p})
}

func (h *PaymentHandler) Confirm(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req struct {
        Commentaire string `json:"commentaire"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    p, err := h.Payments.Confirm(c.Request().Context(), caller(c), id, req.Commentaire)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Paiement confirmé avec succès", "paiement": p})
}

func (h *PaymentHandler) Cancel(c echo.Context) error {
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
    p, err := h.Payments.Cancel(c.Request().Context(), caller(c), id, req.Raison)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Paiement annulé avec succès", "paiement": p})
}

func (h *PaymentHandler) Delete(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    if err := h.Payments.Delete(c.Request().Context(), caller(c), id); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Paiement supprimé avec succès"})
}
