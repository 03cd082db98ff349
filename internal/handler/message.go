package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/service"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// MessageHandler serves /messages and /conversations.
type MessageHandler struct {
    Messages *service.MessageService
}

func NewMessageHandler(m *service.MessageService) *MessageHandler {
    return &MessageHandler{Messages: m}
}

// messagesPerPage is the inbox page size.
const messagesPerPage = 20

func (h *MessageHandler) Index(c echo.Context) error {
    out, err := h.Messages.List(c.Request().Context(), caller(c), page(c, messagesPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// Store sends a message.  JSON bodies carry no attachments; multipart
// forms may add up to five "pieces_jointes" files.
func (h *MessageHandler) Store(c echo.Context) error {
    var in service.MessageInput
    if isMultipart(c) {
        dest, _ := strconv.ParseUint(c.FormValue("destinataire_id"), 10, 64)
        in.DestinataireID = dest
        in.Contenu = c.FormValue("contenu")
        if raw := strings.TrimSpace(c.FormValue("demande_id")); raw != "" {
            id, err := strconv.ParseUint(raw, 10, 64)
            if err != nil || id == 0 {
                return respondError(c, &service.ValidationError{Fields: validation.Violations{"demande_id": "invalid"}})
            }
            in.DemandeID = &id
        }
        files, release, err := formFiles(c, "pieces_jointes")
        if err != nil {
            return badRequest(c, "invalid upload")
        }
        defer release()
        in.Attachments = files
    } else {
        var req struct {
            DestinataireID uint64  `json:"destinataire_id"`
            Contenu        string  `json:"contenu"`
            DemandeID      *uint64 `json:"demande_id"`
        }
        if err := c.Bind(&req); err != nil {
            return badRequest(c, "invalid body")
        }
        in = service.MessageInput{DestinataireID: req.DestinataireID, Contenu: req.Contenu, DemandeID: req.DemandeID}
    }
    m, err := h.Messages.Send(c.Request().Context(), caller(c), in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Message envoyé avec succès", "data": m})
}

// Show returns a message; reading an incoming one marks it read.
func (h *MessageHandler) Show(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    m, err := h.Messages.Get(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": m})
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    m, err := h.Messages.MarkRead(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Message marqué comme lu", "data": m})
}

func (h *MessageHandler) MarkAllRead(c echo.Context) error {
    n, err := h.Messages.MarkAllRead(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Tous les messages ont été marqués comme lus", "count": n})
}

func (h *MessageHandler) UnreadCount(c echo.Context) error {
    n, err := h.Messages.UnreadCount(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *MessageHandler) Delete(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    if err := h.Messages.Delete(c.Request().Context(), caller(c), id); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Message supprimé avec succès"})
}

func (h *MessageHandler) Conversations(c echo.Context) error {
    out, err := h.Messages.Conversations(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// Conversation returns the thread with :user in chronological order.
func (h *MessageHandler) Conversation(c echo.Context) error {
    peer, ok := idParam(c, "user")
    if !ok {
        return badRequest(c, "invalid user id")
    }
    out, err := h.Messages.Conversation(c.Request().Context(), caller(c), peer)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out})
}
