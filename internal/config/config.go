package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (dev, test, prod)
    Port           string // HTTP port to listen on
    LogLevel       string // debug, info, warn or error
    DBDriver       string // mysql, postgres or sqlite
    DBUser         string
    DBPass         string // may be empty
    DBHost         string
    DBPort         string
    DBName         string // file path when DBDriver is sqlite
    JWTSecret      string // secret used to sign access tokens
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int
    AdminEmail     string // seeded admin account, skipped when empty
    AdminPassword  string
    SeedFile       string // reference data YAML; the embedded set is used when empty
    RabbitURL      string // lifecycle events broker, disabled when empty
    EventLogDir    string // where the event consumer appends events.log
    BodyLimit      string // echo body limit, e.g. "12M"
    CORSOrigins    []string
    Storage        StorageConfig
}

// StorageConfig selects where uploaded files live.
type StorageConfig struct {
    Driver         string // local or minio
    Dir            string // local base directory
    PublicURL      string // URL prefix the local directory is served under
    MinioEndpoint  string
    MinioAccessKey string
    MinioSecretKey string
    MinioBucket    string
    MinioUseSSL    bool
    URLExpiry      time.Duration // lifetime of presigned URLs
}

// Load reads an optional .env file then the environment.  Required
// variables are enforced by must(); everything else has a default.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
    cfg := Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           envStr("APP_PORT", "8080"),
        LogLevel:       envStr("LOG_LEVEL", "info"),
        DBDriver:       strings.ToLower(envStr("DB_DRIVER", "mysql")),
        DBUser:         os.Getenv("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         envStr("DB_HOST", "127.0.0.1"),
        DBPort:         os.Getenv("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),
        BcryptCost:     envInt("BCRYPT_COST", 12),
        AdminEmail:     os.Getenv("ADMIN_EMAIL"),
        AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
        SeedFile:       os.Getenv("SEED_FILE"),
        RabbitURL:      os.Getenv("RABBITMQ_URL"),
        EventLogDir:    envStr("EVENT_LOG_DIR", "logs"),
        BodyLimit:      envStr("BODY_LIMIT", "12M"),
        CORSOrigins:    splitList(envStr("CORS_ORIGINS", "*")),
        Storage:        LoadStorageConfig(),
    }
    if cfg.DBDriver != "sqlite" && cfg.DBUser == "" {
        log.Fatalf("missing required env var: DB_USER")
    }
    return cfg
}

// LoadStorageConfig reads the STORAGE_* and MINIO_* variables.
func LoadStorageConfig() StorageConfig {
    return StorageConfig{
        Driver:         strings.ToLower(envStr("STORAGE_DRIVER", "local")),
        Dir:            envStr("STORAGE_DIR", "storage"),
        PublicURL:      envStr("STORAGE_PUBLIC_URL", "/storage"),
        MinioEndpoint:  envStr("MINIO_ENDPOINT", "localhost:9000"),
        MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
        MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
        MinioBucket:    envStr("MINIO_BUCKET", "kmerpro"),
        MinioUseSSL:    envBool("MINIO_USE_SSL", false),
        URLExpiry:      envDur("STORAGE_URL_EXPIRY", time.Hour),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch strings.ToLower(v) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
