package driven

// ConfigStore provides persistent key-value configuration used to
// default CLI flags (store path, table name, batch size, encoder
// quality, failure policy). Keys use dotted names, e.g.
// "ingest.batch_size".
type ConfigStore interface {
	// Get retrieves a raw value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" if absent.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 if absent.
	GetInt(key string) int

	// GetBool retrieves a boolean value, or false if absent.
	GetBool(key string) bool

	// Set stores a value in memory; Save persists it.
	Set(key string, value any)

	// Save writes the configuration to its backing file.
	Save() error
}
