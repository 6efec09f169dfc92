package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Venue.APIKey)
	redact(&out.Venue.APISecret)
	redact(&out.Venue.SecretPassword)

	redact(&out.Postgres.DSN)
	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

func redact(field *string) {
	if *field != "" {
		*field = "***"
	}
}
