package handler

import (
    "errors"
    "io"
    "log/slog"
    "mime/multipart"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/kmerpro-marketplace/internal/middleware"
    "github.com/iliyamo/kmerpro-marketplace/internal/policy"
    "github.com/iliyamo/kmerpro-marketplace/internal/repository"
    "github.com/iliyamo/kmerpro-marketplace/internal/service"
    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
)

// Default and maximum page sizes of listings.
const (
    defaultPerPage = 15
    maxPerPage     = 100
)

// respondError maps service errors onto the JSON error envelope.
// Anything unknown is logged and reported as a 500 without details.
func respondError(c echo.Context, err error) error {
    var ve *service.ValidationError
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "errors": ve.Fields})
    case errors.Is(err, service.ErrUnauthenticated):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrInvalidState):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": service.StateMessage(err)})
    case errors.Is(err, service.ErrBadCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    slog.ErrorContext(c.Request().Context(), "request failed",
        "method", c.Request().Method,
        "route", c.Path(),
        "request_id", c.Response().Header().Get(echo.HeaderXRequestID),
        "err", err,
    )
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func caller(c echo.Context) policy.Caller { return middleware.CallerFrom(c) }

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// page reads ?page= and ?per_page=.
func page(c echo.Context, def int) repository.Page {
    p, _ := strconv.Atoi(c.QueryParam("page"))
    n, _ := strconv.Atoi(c.QueryParam("per_page"))
    return repository.NewPage(p, n, def, maxPerPage)
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(c echo.Context, name string) *bool {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil
    }
    b, err := strconv.ParseBool(raw)
    if err != nil {
        return nil
    }
    return &b
}

func floatQuery(c echo.Context, name string) *float64 {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil
    }
    f, err := strconv.ParseFloat(raw, 64)
    if err != nil {
        return nil
    }
    return &f
}

func uintQuery(c echo.Context, name string) uint64 {
    n, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
    return n
}

// uintList reads ids given as repeated keys (k[]=1&k[]=2, k=1&k=2) or
// one comma-separated value.
func uintList(c echo.Context, name string) []uint64 {
    q := c.QueryParams()
    raw := append(append([]string{}, q[name]...), q[name+"[]"]...)
    var out []uint64
    for _, r := range raw {
        for _, part := range strings.Split(r, ",") {
            if n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64); err == nil && n > 0 {
                out = append(out, n)
            }
        }
    }
    return out
}

// formPtr returns the form value of name, or nil when the field is absent.
func formPtr(c echo.Context, name string) *string {
    params, err := c.FormParams()
    if err != nil {
        return nil
    }
    vals, ok := params[name]
    if !ok || len(vals) == 0 {
        return nil
    }
    return &vals[0]
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(c echo.Context) bool {
    return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formFiles opens the uploaded files of field (also field[]).  The
// returned closer releases them once the service has stored the blobs.
func formFiles(c echo.Context, field string) ([]storage.File, func(), error) {
    form, err := c.MultipartForm()
    if err != nil {
        return nil, func() {}, err
    }
    headers := append(append([]*multipart.FileHeader{}, form.File[field]...), form.File[field+"[]"]...)
    files := make([]storage.File, 0, len(headers))
    opened := make([]io.Closer, 0, len(headers))
    release := func() {
        for _, f := range opened {
            f.Close()
        }
    }
    for _, h := range headers {
        f, err := h.Open()
        if err != nil {
            release()
            return nil, func() {}, err
        }
        opened = append(opened, f)
        files = append(files, fileFrom(h, f))
    }
    return files, release, nil
}

// formFile is formFiles for a single optional file; nil when absent.
func formFile(c echo.Context, field string) (*storage.File, func(), error) {
    h, err := c.FormFile(field)
    if errors.Is(err, http.ErrMissingFile) {
        return nil, func() {}, nil
    }
    if err != nil {
        return nil, func() {}, err
    }
    f, err := h.Open()
    if err != nil {
        return nil, func() {}, err
    }
    file := fileFrom(h, f)
    return &file, func() { f.Close() }, nil
}

func fileFrom(h *multipart.FileHeader, r io.Reader) storage.File {
    return storage.File{
        Name:        h.Filename,
        ContentType: h.Header.Get(echo.HeaderContentType),
        Size:        h.Size,
        Body:        r,
    }
}
