package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/budget"
	"expensetracker/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Budget, in cents
	MonthlyBudget    int64
	BudgetHR         int64
	BudgetIT         int64
	BudgetMarketing  int64
	BudgetOperations int64

	// OCR
	OCRCommand string
	OCRTimeout time.Duration

	// Voice: "none", "stdin" or a file path with one transcript per line
	VoiceSource        string
	VoiceQueueSize     int
	VoiceListenTimeout time.Duration
	VoiceDrainInterval time.Duration

	// AMQP, optional
	AMQPURL             string
	AMQPExchange        string
	AMQPQueue           string
	AMQPTranscriptQueue string

	// Export
	ExportBackend string
	ExportDir     string
	ExportFormat  string
	SQLiteDBPath  string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Insights
	InsightsEnabled  bool
	InsightsAPIKey   string
	InsightsModel    string
	InsightsTimeout  time.Duration
	InsightsCacheTTL time.Duration

	LogLevel string
}

func Load() *Config {
	defaults := budget.DefaultLimits()

	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		MonthlyBudget:    getEnvCents("MONTHLY_BUDGET", defaults.MonthlyBudget.Cents),
		BudgetHR:         getEnvCents("BUDGET_HR", defaults.Departments[core.DeptHR].Cents),
		BudgetIT:         getEnvCents("BUDGET_IT", defaults.Departments[core.DeptIT].Cents),
		BudgetMarketing:  getEnvCents("BUDGET_MARKETING", defaults.Departments[core.DeptMarketing].Cents),
		BudgetOperations: getEnvCents("BUDGET_OPERATIONS", defaults.Departments[core.DeptOperations].Cents),

		OCRCommand: getEnv("OCR_COMMAND", "tesseract"),
		OCRTimeout: getEnvDuration("OCR_TIMEOUT", 30*time.Second),

		VoiceSource:        getEnv("VOICE_SOURCE", "none"),
		VoiceQueueSize:     getEnvInt("VOICE_QUEUE_SIZE", 64),
		VoiceListenTimeout: getEnvDuration("VOICE_LISTEN_TIMEOUT", 5*time.Second),
		VoiceDrainInterval: getEnvDuration("VOICE_DRAIN_INTERVAL", 100*time.Millisecond),

		AMQPURL:             getEnv("AMQP_URL", ""),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "expense_tracker"),
		AMQPQueue:           getEnv("AMQP_QUEUE", "expense_recorded"),
		AMQPTranscriptQueue: getEnv("AMQP_TRANSCRIPT_QUEUE", "voice_transcripts"),

		ExportBackend: getEnv("EXPORT_BACKEND", "file"),
		ExportDir:     getEnv("EXPORT_DIR", "./reports"),
		ExportFormat:  getEnv("EXPORT_FORMAT", "text"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/reports.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expense Reports"),

		InsightsEnabled:  getEnvBool("INSIGHTS_ENABLED", false),
		InsightsAPIKey:   getEnv("INSIGHTS_API_KEY", ""),
		InsightsModel:    getEnv("INSIGHTS_MODEL", "gemini-2.5-flash"),
		InsightsTimeout:  getEnvDuration("INSIGHTS_TIMEOUT", 30*time.Second),
		InsightsCacheTTL: getEnvDuration("INSIGHTS_CACHE_TTL", 10*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Limits converts the configured amounts into aggregator limits. Savings
// targets are fixed.
func (c *Config) Limits() budget.Limits {
	l := budget.DefaultLimits()
	l.MonthlyBudget = core.Money{Cents: c.MonthlyBudget}
	l.Departments = map[core.Department]core.Money{
		core.DeptHR:         {Cents: c.BudgetHR},
		core.DeptIT:         {Cents: c.BudgetIT},
		core.DeptMarketing:  {Cents: c.BudgetMarketing},
		core.DeptOperations: {Cents: c.BudgetOperations},
	}
	return l
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for name, cents := range map[string]int64{
		"MONTHLY_BUDGET":    c.MonthlyBudget,
		"BUDGET_HR":         c.BudgetHR,
		"BUDGET_IT":         c.BudgetIT,
		"BUDGET_MARKETING":  c.BudgetMarketing,
		"BUDGET_OPERATIONS": c.BudgetOperations,
	} {
		if cents <= 0 {
			errors = append(errors, fmt.Sprintf("invalid %s: must be positive", name))
		}
	}

	if c.OCRTimeout <= 0 || c.OCRTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid OCR timeout %v: must be between 0 and 5 minutes", c.OCRTimeout))
	}

	if c.VoiceSource == "" {
		errors = append(errors, "voice source cannot be empty: use 'none', 'stdin' or a file path")
	} else if c.VoiceSource != "none" && c.VoiceSource != "stdin" {
		if _, err := os.Stat(c.VoiceSource); err != nil {
			errors = append(errors, fmt.Sprintf("voice source file '%s' is not readable: %v", c.VoiceSource, err))
		}
	}
	if c.VoiceQueueSize < 1 || c.VoiceQueueSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid voice queue size %d: must be between 1 and 10000", c.VoiceQueueSize))
	}
	if c.VoiceListenTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid voice listen timeout %v: must be at least 100ms", c.VoiceListenTimeout))
	}
	if c.VoiceDrainInterval < 10*time.Millisecond || c.VoiceDrainInterval > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid voice drain interval %v: must be between 10ms and 1 minute", c.VoiceDrainInterval))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validBackends := []string{"file", "sqlite", "sheets", "memory"}
	isValidBackend := false
	for _, b := range validBackends {
		if c.ExportBackend == b {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, validBackends))
	}

	switch c.ExportBackend {
	case "file":
		if c.ExportDir == "" {
			errors = append(errors, "export directory cannot be empty when using file backend")
		}
		if c.ExportFormat != "text" && c.ExportFormat != "csv" {
			errors = append(errors, fmt.Sprintf("invalid export format '%s': must be 'text' or 'csv'", c.ExportFormat))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if c.InsightsEnabled {
		if c.InsightsModel == "" {
			errors = append(errors, "insights model cannot be empty when insights are enabled")
		}
		if c.InsightsTimeout <= 0 || c.InsightsTimeout > 5*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid insights timeout %v: must be between 0 and 5 minutes", c.InsightsTimeout))
		}
		if c.InsightsCacheTTL < 0 {
			errors = append(errors, fmt.Sprintf("invalid insights cache TTL %v: must not be negative", c.InsightsCacheTTL))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvCents reads a decimal amount such as "25000" or "25000.50". An
// unparseable or non-positive value falls back to the default.
func getEnvCents(key string, defaultCents int64) int64 {
	if value := os.Getenv(key); value != "" {
		if c, err := core.ParseDecimalToCents(value); err == nil {
			return c
		}
	}
	return defaultCents
}
