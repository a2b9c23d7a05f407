package config

import (
	"time"

	"github.com/spf13/pflag"
)

// DefaultEndpoint is a placeholder; real deployments set client.endpoint
// through the config file, SCRIBE_CLIENT_ENDPOINT or --client.endpoint.
const DefaultEndpoint = "https://transcribe.example.invalid/Prod/transcribe"

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint: DefaultEndpoint,
		Timeout:  60 * time.Second,
	}
}

// DefaultPollConfig returns the default polling configuration: a check every
// five seconds, no attempt limit, no per-check retries.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:     5 * time.Second,
		MaxAttempts:  0,
		CheckRetries: 0,
	}
}

// BindClientFlags binds service and polling flags to the provided FlagSet.
//
// Flags are namespaced to match config keys, so posflag maps them directly.
// Example: --client.endpoint, --poll.interval
func BindClientFlags(flags *pflag.FlagSet) {
	client := DefaultClientConfig()
	poll := DefaultPollConfig()

	flags.String("client.endpoint", client.Endpoint, "Transcription service endpoint URL")
	flags.Duration("client.timeout", client.Timeout, "Per-request HTTP timeout")
	flags.Duration("poll.interval", poll.Interval, "Wait between status checks")
	flags.Int("poll.max_attempts", poll.MaxAttempts, "Maximum status checks per job (0 = unbounded)")
	flags.Int("poll.check_retries", poll.CheckRetries, "Retries of a transiently failing status check")
}
