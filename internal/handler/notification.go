package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/service"
)

// NotificationHandler serves /notifications.
type NotificationHandler struct {
    Notifications *service.NotificationService
}

func NewNotificationHandler(n *service.NotificationService) *NotificationHandler {
    return &NotificationHandler{Notifications: n}
}

// Index lists the caller's notifications, filtered by ?lu=true|false.
func (h *NotificationHandler) Index(c echo.Context) error {
    out, err := h.Notifications.List(c.Request().Context(), caller(c), boolQuery(c, "lu"), page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) Unread(c echo.Context) error {
    lu := false
    ctx := c.Request().Context()
    out, err := h.Notifications.List(ctx, caller(c), &lu, page(c, defaultPerPage))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out.Data, "count": out.Total})
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
    n, err := h.Notifications.UnreadCount(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *NotificationHandler) Stats(c echo.Context) error {
    st, err := h.Notifications.Stats(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, st)
}

func (h *NotificationHandler) Show(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    n, err := h.Notifications.Get(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"notification": n})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    n, err := h.Notifications.MarkRead(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Notification marquée comme lue", "notification": n})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
    n, err := h.Notifications.MarkAllRead(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Toutes les notifications ont été marquées comme lues", "count": n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    if err := h.Notifications.Delete(c.Request().Context(), caller(c), id); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Notification supprimée"})
}

func (h *NotificationHandler) DeleteAll(c echo.Context) error {
    n, err := h.Notifications.DeleteAll(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Notifications supprimées", "count": n})
}

// Store lets an admin address a notification to a user.
func (h *NotificationHandler) Store(c echo.Context) error {
    var req struct {
        UserID  uint64         `json:"user_id"`
        Type    string         `json:"type"`
        Titre   string         `json:"titre"`
        Message string         `json:"message"`
        Lien    string         `json:"lien"`
        Data    map[string]any `json:"data"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    n, err := h.Notifications.Create(c.Request().Context(), caller(c), service.NotificationInput{
        UserID:  req.UserID,
        Type:    req.Type,
        Titre:   req.Titre,
        Message: req.Message,
        Lien:    req.Lien,
        Data:    req.Data,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Notification créée", "notification": n})
}
