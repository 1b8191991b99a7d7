package config

// NotifierSettings holds configuration for the dead-letter notifier.
type NotifierSettings struct {
	Type      string `mapstructure:"type"` // "rabbitmq", "gcp-pubsub" or "" for none
	URL       string `mapstructure:"url"`
	Exchange  string `mapstructure:"exchange"`
	Topic     string `mapstructure:"topic"`
	ProjectID string `mapstructure:"projectID"` // Optional, for GCP Pub/Sub
}
