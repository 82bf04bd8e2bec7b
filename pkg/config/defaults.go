package config

const (
	RenderMarkdown = "markdown"
	RenderPlain    = "plain"

	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	StorageNone     = "none"

	EventsKafka = "kafka"
	EventsNone  = "none"
)

const (
	defaultAPITarget = "http://localhost:8000/api"
	defaultTimeout   = "30s"

	defaultRender = RenderMarkdown

	defaultStorageDriver = StorageSQLite

	defaultEventsDriver = EventsNone
	defaultKafkaTopic   = "seagent.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget: defaultAPITarget,
			Timeout:   defaultTimeout,
		},
		Chat: ChatConfig{
			Render: defaultRender,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Events: EventsConfig{
			Driver:     defaultEventsDriver,
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
