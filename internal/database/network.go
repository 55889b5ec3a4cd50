package database

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errMissingIdentity = errors.New("configuration requires user and database name")

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

// buildPostgresDSN renders a libpq keyword/value string. Extra options are
// emitted in key order so the DSN is stable.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("postgres: %w", errMissingIdentity)
	}

	options := map[string]string{"sslmode": "disable"}
	maps.Copy(options, cfg.Options)

	params := []string{
		"host=" + withDefault(cfg.Host, "localhost"),
		fmt.Sprintf("port=%d", portOrDefault(cfg.Port, 5432)),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		params = append(params, "password="+cfg.Password)
	}
	for _, key := range slices.Sorted(maps.Keys(options)) {
		params = append(params, key+"="+options[key])
	}
	return strings.Join(params, " "), nil
}

// buildMySQLDSN delegates formatting to the driver so credentials are escaped
// the way the driver parses them.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("mysql: %w", errMissingIdentity)
	}

	dc := mysqldrv.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", withDefault(cfg.Host, "127.0.0.1"), portOrDefault(cfg.Port, 3306))
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		if key == "tls" {
			dc.TLSConfig = value
			continue
		}
		dc.Params[key] = value
	}
	return dc.FormatDSN(), nil
}

func withDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func portOrDefault(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}
