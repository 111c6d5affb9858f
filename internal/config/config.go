package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	KB       KBConfig       `mapstructure:"kb"       validate:"required"`
	Task     TaskConfig     `mapstructure:"task"`
	SRS      SRSConfig      `mapstructure:"srs"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the access token lifetime.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"gt=0"`

	// RefreshTokenLifetimeMinutes is the refresh token lifetime.
	RefreshTokenLifetimeMinutes int `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0"`

	// BCryptCost is the bcrypt work factor for password hashing.
	BCryptCost int `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`

	// ModelName selects the Gemini model used for chat distillation.
	ModelName string `mapstructure:"model_name"`

	// MaxRetries bounds retry attempts for transient generation failures.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
}

// KBConfig contains knowledge-base filesystem settings.
type KBConfig struct {
	// Root is the directory holding the markdown rem tree.
	Root string `mapstructure:"root" validate:"required"`

	// ChatsDir is the subdirectory (relative to Root) where archived chat
	// transcripts are written.
	ChatsDir string `mapstructure:"chats_dir"`

	// ExportDir is the subdirectory (relative to Root) where schedule and
	// backlink snapshots are exported.
	ExportDir string `mapstructure:"export_dir"`

	// WatchEnabled turns on the filesystem watcher that triggers incremental
	// sync on rem file changes.
	WatchEnabled bool `mapstructure:"watch_enabled"`

	// OwnerEmail identifies the account the on-disk knowledge base belongs
	// to. Required when WatchEnabled is set so the watcher knows which
	// user's catalog to sync.
	OwnerEmail string `mapstructure:"owner_email" validate:"omitempty,email"`

	// StaleRemDays is the review-inactivity window after which a rem is
	// flagged as stale in maintenance reports.
	StaleRemDays int `mapstructure:"stale_rem_days" validate:"gte=0"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	WorkerCount           int `mapstructure:"worker_count"              validate:"gte=0"`
	QueueSize             int `mapstructure:"queue_size"                validate:"gte=0"`
	StuckTaskAgeMinutes   int `mapstructure:"stuck_task_age_minutes"    validate:"gte=0"`
	StuckTaskCheckMinutes int `mapstructure:"stuck_task_check_minutes"  validate:"gte=0"`
}

// SRSConfig contains scheduler tuning settings.
type SRSConfig struct {
	// DesiredRetention is the recall probability the scheduler targets.
	DesiredRetention float64 `mapstructure:"desired_retention" validate:"gt=0,lt=1"`

	// MinIntervalDays and MaxIntervalDays clamp computed review intervals.
	MinIntervalDays int `mapstructure:"min_interval_days" validate:"gte=1"`
	MaxIntervalDays int `mapstructure:"max_interval_days" validate:"gte=1"`

	// AgainReviewMinutes is the relearn delay after a failed review.
	AgainReviewMinutes int `mapstructure:"again_review_minutes" validate:"gte=1"`
}
