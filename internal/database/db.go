// Package database opens the gorm connection, migrates the schema and
// seeds reference data.
package database

import (
    "context"
    "fmt"
    "log/slog"
    "net"
    "strings"
    "time"

    mysqlcfg "github.com/go-sql-driver/mysql"
    "gorm.io/driver/mysql"
    "gorm.io/driver/postgres"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"

    "github.com/iliyamo/kmerpro-marketplace/internal/config"
    "github.com/iliyamo/kmerpro-marketplace/internal/logger"
)

// Open connects with the configured driver and verifies the connection.
func Open(cfg config.Config, log *slog.Logger) (*gorm.DB, error) {
    dialector, err := dialect(cfg)
    if err != nil {
        return nil, err
    }
    db, err := gorm.Open(dialector, &gorm.Config{
        Logger:  logger.Gorm(log, cfg.LogLevel),
        NowFunc: func() time.Time { return time.Now().UTC() },
    })
    if err != nil {
        return nil, err
    }
    sqlDB, err := db.DB()
    if err != nil {
        return nil, err
    }
    if cfg.DBDriver == "sqlite" {
        sqlDB.SetMaxOpenConns(1)
    } else {
        sqlDB.SetMaxOpenConns(25)
        sqlDB.SetMaxIdleConns(25)
        sqlDB.SetConnMaxLifetime(30 * time.Minute)
    }

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := sqlDB.PingContext(ctx); err != nil {
        return nil, err
    }
    return db, nil
}

func dialect(cfg config.Config) (gorm.Dialector, error) {
    switch cfg.DBDriver {
    case "mysql", "":
        return mysql.Open(MySQLDSN(cfg)), nil
    case "postgres":
        return postgres.Open(PostgresDSN(cfg)), nil
    case "sqlite":
        return sqlite.Open(cfg.DBName), nil
    }
    return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// MySQLDSN renders the connection string with parseTime and UTC so DATETIME
// columns scan into time.Time consistently.
func MySQLDSN(cfg config.Config) string {
    port := cfg.DBPort
    if port == "" {
        port = "3306"
    }
    c := mysqlcfg.NewConfig()
    c.User = cfg.DBUser
    c.Passwd = cfg.DBPass
    c.Net = "tcp"
    c.Addr = net.JoinHostPort(cfg.DBHost, port)
    c.DBName = cfg.DBName
    c.ParseTime = true
    c.Loc = time.UTC
    c.Params = map[string]string{"charset": "utf8mb4"}
    return c.FormatDSN()
}

// PostgresDSN renders a key/value connection string.
func PostgresDSN(cfg config.Config) string {
    port := cfg.DBPort
    if port == "" {
        port = "5432"
    }
    parts := []string{
        "host=" + cfg.DBHost,
        "port=" + port,
        "user=" + cfg.DBUser,
        "dbname=" + cfg.DBName,
        "sslmode=disable",
        "TimeZone=UTC",
    }
    if cfg.DBPass != "" {
        parts = append(parts, "password="+cfg.DBPass)
    }
    return strings.Join(parts, " ")
}
