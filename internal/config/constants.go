package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = "development"

	defaultIndexDriver = "jsonfile"

	defaultMaxSourceChars = 45000
	defaultWorkerLimit    = 4

	defaultArchiveIntervalHours = 24
	defaultArchiveKeep          = 5
	defaultArchivePathTemplate  = "archives/{Y}/{m}/{filename}"

	defaultSiteTitle = "Syllabind"
)

// Provider types accepted in ai.providers[].type.
const (
	ProviderOpenAI           = "OpenAI"
	ProviderOpenAICompatible = "OpenAI-Compatible"
	ProviderAnthropic        = "Anthropic"
	ProviderOpenRouter       = "OpenRouter"
)

// Index drivers accepted in index.driver.
const (
	IndexDriverJSONFile = "jsonfile"
	IndexDriverSQLite   = "sqlite"
	IndexDriverMySQL    = "mysql"
)

// Environment overrides applied after the YAML file is loaded.
const (
	EnvDataDir    = "SYLLABIND_DATA_DIR"
	EnvAdminToken = "SYLLABIND_ADMIN_TOKEN"
)
