// pkg/config/types.go
package config

import "time"

// Config is the root configuration structure for the scribe CLI.
// It aggregates all other specific configuration structs.
type Config struct {
	Log    LogConfig    `description:"Logging configuration" koanf:"log"`
	Client ClientConfig `description:"Transcription service client" koanf:"client"`
	Poll   PollConfig   `description:"Job status polling" koanf:"poll"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level set to scribe logs." koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `description:"Scribe log format: json | text" koanf:"format" validate:"omitempty,oneof=json text"`
	File   string `description:"Log file path" koanf:"file"`
}

// ClientConfig holds configuration for the transcription service client.
type ClientConfig struct {
	// Endpoint is the job collection URL: audio is POSTed here and
	// job status is read from <endpoint>/<jobId>.
	Endpoint  string        `description:"Transcription service endpoint" koanf:"endpoint" validate:"required,url"`
	Timeout   time.Duration `description:"Per-request HTTP timeout" koanf:"timeout" validate:"gte=0"`
	UserAgent string        `description:"User-Agent header override" koanf:"user_agent"`
}

// PollConfig holds configuration for the status polling loop.
type PollConfig struct {
	Interval time.Duration `description:"Wait between the end of one status check and the next" koanf:"interval" validate:"gt=0"`
	// MaxAttempts bounds the number of status checks (0 = unbounded).
	MaxAttempts int `description:"Maximum status checks per job, 0 for unbounded" koanf:"max_attempts" validate:"gte=0"`
	// CheckRetries is the number of retries of a single failed check (0 = fail on first error).
	CheckRetries int `description:"Retries of a transiently failing status check" koanf:"check_retries" validate:"gte=0,lte=10"`
}
