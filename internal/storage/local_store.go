package storage

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "path"
    "path/filepath"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// PublicPrefixes are the key prefixes anyone may fetch: service galleries
// and profile pictures.  Every other key (credentials, diplomas, message
// attachments) is only served through a signed, expiring URL.
var PublicPrefixes = []string{"services/", "profiles/"}

// LocalStore writes blobs below a base directory and serves them under
// a URL prefix through Handler.
type LocalStore struct {
    basePath  string
    publicURL string
    secret    []byte
    expiry    time.Duration
}

// NewLocalStore creates the base directory if missing.  secret signs the
// URLs of private keys, which stay valid for expiry.
func NewLocalStore(basePath, publicURL, secret string, expiry time.Duration) (*LocalStore, error) {
    if strings.TrimSpace(basePath) == "" {
        return nil, fmt.Errorf("storage base path is required")
    }
    if secret == "" {
        return nil, fmt.Errorf("storage signing secret is required")
    }
    if expiry <= 0 {
        expiry = time.Hour
    }
    if err := os.MkdirAll(basePath, 0o755); err != nil {
        return nil, fmt.Errorf("create storage dir: %w", err)
    }
    return &LocalStore{
        basePath:  basePath,
        publicURL: strings.TrimRight(publicURL, "/"),
        secret:    []byte(secret),
        expiry:    expiry,
    }, nil
}

// Put writes r to the file named by key.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
    target, err := s.path(key)
    if err != nil {
        return err
    }
    if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
        return fmt.Errorf("create dir: %w", err)
    }
    out, err := os.Create(target)
    if err != nil {
        return fmt.Errorf("create file: %w", err)
    }
    defer out.Close()
    if _, err := io.Copy(out, r); err != nil {
        return fmt.Errorf("write file: %w", err)
    }
    return nil
}

// URL returns the address of key.  Private keys carry a signed token
// bound to the key.
func (s *LocalStore) URL(ctx context.Context, key string) (string, error) {
    if _, err := s.path(key); err != nil {
        return "", err
    }
    if IsPublic(key) {
        return s.publicURL + "/" + key, nil
    }
    token, err := s.sign(key, time.Now().Add(s.expiry))
    if err != nil {
        return "", err
    }
    return s.publicURL + "/" + key + "?token=" + url.QueryEscape(token), nil
}

// IsPublic reports whether key may be served without a signature.
func IsPublic(key string) bool {
    for _, p := range PublicPrefixes {
        if strings.HasPrefix(key, p) {
            return true
        }
    }
    return false
}

func (s *LocalStore) sign(key string, exp time.Time) (string, error) {
    claims := jwt.RegisteredClaims{Subject: key, ExpiresAt: jwt.NewNumericDate(exp)}
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// allowed checks that token is an unexpired signature for key.
func (s *LocalStore) allowed(key, token string) bool {
    if token == "" {
        return false
    }
    var claims jwt.RegisteredClaims
    _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
        return s.secret, nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    return err == nil && claims.Subject == key
}

// Handler serves blobs by key from the request path, which must already
// be stripped of the URL prefix.  Private keys need their ?token=.
func (s *LocalStore) Handler() http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        key := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
        if key == "" {
            http.NotFound(w, r)
            return
        }
        if !IsPublic(key) && !s.allowed(key, r.URL.Query().Get("token")) {
            http.Error(w, "forbidden", http.StatusForbidden)
            return
        }
        target, err := s.path(key)
        if err != nil {
            http.NotFound(w, r)
            return
        }
        info, err := os.Stat(target)
        if err != nil || info.IsDir() {
            http.NotFound(w, r)
            return
        }
        http.ServeFile(w, r, target)
    })
}

// Delete removes key; a missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
    target, err := s.path(key)
    if err != nil {
        return err
    }
    if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
        return fmt.Errorf("delete file: %w", err)
    }
    return nil
}

// path resolves key below basePath, refusing keys that escape it.
func (s *LocalStore) path(key string) (string, error) {
    clean := filepath.Clean("/" + key)
    if clean == "/" {
        return "", fmt.Errorf("empty storage key")
    }
    return filepath.Join(s.basePath, clean), nil
}
