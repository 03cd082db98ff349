package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/config"
    "github.com/iliyamo/kmerpro-marketplace/internal/middleware"
    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
    "github.com/iliyamo/kmerpro-marketplace/internal/session"
    "github.com/iliyamo/kmerpro-marketplace/internal/utils"
    "github.com/iliyamo/kmerpro-marketplace/internal/validation"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg     config.Config
    Users   *repository.UserRepo
    Tokens  *repository.TokenRepo
    Revoker session.TokenRevoker
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, r session.TokenRevoker) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Revoker: r}
}

// ----- DTOs -----

type registerReq struct {
    Nom                  string `json:"nom"`
    Prenom               string `json:"prenom"`
    Email                string `json:"email"`
    Password             string `json:"password"`
    PasswordConfirmation string `json:"password_confirmation"`
    Telephone            string `json:"telephone"`
    Type                 string `json:"type"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type authResp struct {
    Message      string     `json:"message"`
    User         model.User `json:"user"`
    Token        string     `json:"token"`
    ExpiresAt    time.Time  `json:"expires_at"`
    RefreshToken string     `json:"refresh_token"`
}

// Register creates a client or professional account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Type = strings.ToLower(strings.TrimSpace(req.Type))

    v := validation.Violations{}
    validation.Required("nom", req.Nom, v)
    validation.MaxLen("nom", req.Nom, 100, v)
    validation.MaxLen("prenom", req.Prenom, 100, v)
    validation.Required("email", req.Email, v)
    validation.Email("email", req.Email, v)
    validation.MaxLen("email", req.Email, 191, v)
    validation.Required("password", req.Password, v)
    validation.MinLen("password", req.Password, 8, v)
    if req.Password != req.PasswordConfirmation {
        v.Add("password", "confirmation_mismatch")
    }
    validation.MaxLen("telephone", req.Telephone, 30, v)
    validation.OneOf("type", req.Type, []string{string(model.RoleClient), string(model.RoleProfessionnel)}, v)
    if !v.Empty() {
        return respondError(c, &service.ValidationError{Fields: v})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return respondError(c, err)
    }
    u := model.User{
        Nom:          strings.TrimSpace(req.Nom),
        Prenom:       strings.TrimSpace(req.Prenom),
        Email:        req.Email,
        PasswordHash: hash,
        Role:         model.Role(req.Type),
        Telephone:    strings.TrimSpace(req.Telephone),
        IsActive:     true,
    }
    if err := h.Users.Create(ctx, &u); err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return respondError(c, &service.ValidationError{Fields: validation.Violations{"email": "taken"}})
        }
        return respondError(c, err)
    }
    return h.issue(ctx, c, http.StatusCreated, "Inscription réussie", u)
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    v := validation.Violations{}
    validation.Required("email", req.Email, v)
    validation.Required("password", req.Password, v)
    if !v.Empty() {
        return respondError(c, &service.ValidationError{Fields: v})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return respondError(c, service.ErrBadCredentials)
    }
    if err != nil {
        return respondError(c, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return respondError(c, service.ErrBadCredentials)
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
    }
    return h.issue(ctx, c, http.StatusOK, "Connexion réussie", u)
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return badRequest(c, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return respondError(c, err)
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    if err != nil {
        return respondError(c, err)
    }
    return h.issue(ctx, c, http.StatusOK, "Jeton renouvelé", u)
}

// Logout revokes the presented access token until it expires and every
// refresh token of the user.
func (h *AuthHandler) Logout(c echo.Context) error {
    uid, _ := c.Get(middleware.KeyUserID).(uint64)
    jti, _ := c.Get(middleware.KeyJTI).(string)
    exp, _ := c.Get(middleware.KeyTokenExp).(time.Time)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Revoker.Revoke(ctx, jti, time.Until(exp)); err != nil {
        return respondError(c, err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Déconnexion réussie"})
}

// issue signs an access token, stores a refresh token and writes the
// auth response.
func (h *AuthHandler) issue(ctx context.Context, c echo.Context, status int, msg string, u model.User) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
    if err != nil {
        return respondError(c, err)
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return respondError(c, err)
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return respondError(c, err)
    }
    return c.JSON(status, authResp{
        Message:      msg,
        User:         u,
        Token:        access.Token,
        ExpiresAt:    access.Exp,
        RefreshToken: refresh.Raw,
    })
}
