package config

// Backend persists non-secret settings. Values are kept as text and parsed
// against their key's type when configuration is loaded.
type Backend interface {
	Get(key string) (raw string, ok bool, err error)
	Set(key, raw string) error
	Unset(key string) error
	// Location names where settings are kept, for display.
	Location() string
}
