package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabasePath  string
	MigrationsDir string
	ArchiveDir    string
	CORSOrigin    string
	// SharePoint / Microsoft Graph
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	SiteURL           string
	DriveName         string
	BasePath          string
	LedgerFile        string
	PendingFolder     string
	RejectedFolder    string
	// Monitor
	PollInterval time.Duration
	RedisURL     string
	// Search
	MeiliURL       string
	MeiliMasterKey string
	// SMTP Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":5000"),
		DatabasePath:  getenv("PSG_DATABASE_PATH", "./data/banco.db"),
		MigrationsDir: getenv("PSG_MIGRATIONS_DIR", "./db/migrations"),
		ArchiveDir:    getenv("PSG_ARCHIVE_DIR", "./data/documentos"),
		CORSOrigin:    getenv("PSG_CORS_ORIGIN", "*"),

		GraphTenantID:     getenv("SHAREPOINT_TENANT_ID", ""),
		GraphClientID:     getenv("SHAREPOINT_CLIENT_ID", ""),
		GraphClientSecret: getenv("SHAREPOINT_CLIENT_SECRET", ""),
		SiteURL:           getenv("SHAREPOINT_SITE_URL", ""),
		DriveName:         getenv("SHAREPOINT_DRIVE_NAME", "Documentos"),
		BasePath:          getenv("SHAREPOINT_BASE_PATH", "PSG"),
		LedgerFile:        getenv("PSG_LEDGER_FILE", "Status_PSG.xlsx"),
		PendingFolder:     getenv("PSG_PENDING_FOLDER", "Pendentes"),
		RejectedFolder:    getenv("PSG_REJECTED_FOLDER", "Reprovados"),

		PollInterval: time.Duration(getenvInt("PSG_POLL_INTERVAL_SECONDS", 60)) * time.Second,
		// Redis - optional; when empty the monitor runs without a cross-process lock
		RedisURL: getenv("REDIS_URL", ""),

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// SMTP - empty by default, email disabled if not configured
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "PSG Docs"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
