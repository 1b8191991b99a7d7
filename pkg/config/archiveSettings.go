package config

// ArchiveSettings holds configuration for the terminal-job archive.
// Type selects the backend ("postgres", "mongo" or "" for none).
type ArchiveSettings struct {
	Type       string `mapstructure:"type"`
	DSN        string `mapstructure:"dsn"`        // postgres connection string
	URI        string `mapstructure:"uri"`        // mongo connection URI
	Database   string `mapstructure:"database"`   // mongo database name
	Collection string `mapstructure:"collection"` // mongo collection name
}
