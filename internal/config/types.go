package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	Timezone       string             `yaml:"timezone"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	Security       SecurityConfig     `yaml:"security"`
	Index          IndexConfig        `yaml:"index"`
	AI             AIConfig           `yaml:"ai"`
	Archive        ArchiveConfig      `yaml:"archive"`
	Notify         NotifyConfig       `yaml:"notify"`
}

type RuntimePathsConfig struct {
	Data     string `yaml:"data"`
	Logs     string `yaml:"logs"`
	Archives string `yaml:"archives"`
}

type SecurityConfig struct {
	AdminToken string `yaml:"admin_token"`
}

// IndexConfig selects the syllabus index backend. The jsonfile driver
// keeps the index in <data>/index.json; sqlite and mysql use GORM with
// the given DSN.
type IndexConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AIConfig struct {
	Providers      []AIProvider       `yaml:"providers"`
	InsightModel   *AIModelAssignment `yaml:"insight_model"`
	CompareModel   *AIModelAssignment `yaml:"compare_model"`
	MaxSourceChars int                `yaml:"max_source_chars"`
	Precompute     bool               `yaml:"precompute"`
	WorkerLimit    int                `yaml:"worker_limit"`
}

type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id" json:"provider_id"`
	Model      string `yaml:"model" json:"model"`
}

type AIProvider struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Type         string `yaml:"type" json:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `yaml:"api_key" json:"-"`
	Endpoint     string `yaml:"endpoint" json:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model" json:"default_model"`
	Enabled      bool   `yaml:"enabled" json:"enabled"`
}

type ArchiveConfig struct {
	Enabled       bool     `yaml:"enabled"`
	IntervalHours int      `yaml:"interval_hours"`
	Keep          int      `yaml:"keep"`
	S3            S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathTemplate    string `yaml:"path_template"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

type NotifyConfig struct {
	BarkKey    string `yaml:"bark_key"`
	BarkServer string `yaml:"bark_server"`
	SiteTitle  string `yaml:"site_title"`
}

type rawAppConfig struct {
	Port               int                `yaml:"port"`
	Env                string             `yaml:"env"`
	NodeEnv            string             `yaml:"node_env"`
	Timezone           string             `yaml:"timezone"`
	TimeZone           string             `yaml:"time_zone"`
	TZ                 string             `yaml:"tz"`
	AllowedOrigins     []string           `yaml:"allowed_origins"`
	CORSAllowedOrigins []string           `yaml:"cors_allowed_origins"`
	Paths              rawPathsConfig     `yaml:"paths"`
	DataDir            string             `yaml:"data_dir"`
	LogDir             string             `yaml:"log_dir"`
	LogsDir            string             `yaml:"logs_dir"`
	ArchiveDir         string             `yaml:"archive_dir"`
	ArchivesDir        string             `yaml:"archives_dir"`
	Security           rawSecurityConfig  `yaml:"security"`
	AdminToken         string             `yaml:"admin_token"`
	Index              rawIndexConfig     `yaml:"index"`
	IndexDriver        string             `yaml:"index_driver"`
	IndexDSN           string             `yaml:"index_dsn"`
	AI                 rawAIConfig        `yaml:"ai"`
	Archive            rawArchiveConfig   `yaml:"archive"`
	Notify             rawNotifyConfig    `yaml:"notify"`
	BarkKey            string             `yaml:"bark_key"`
	BarkServer         string             `yaml:"bark_server"`
	SiteTitle          string             `yaml:"site_title"`
}

type rawPathsConfig struct {
	Data     string `yaml:"data"`
	Logs     string `yaml:"logs"`
	Archives string `yaml:"archives"`
}

type rawSecurityConfig struct {
	AdminToken string `yaml:"admin_token"`
	Token      string `yaml:"token"`
}

type rawIndexConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	URL    string `yaml:"url"`
}

type rawAIConfig struct {
	Providers      []AIProvider       `yaml:"providers"`
	InsightModel   *AIModelAssignment `yaml:"insight_model"`
	CompareModel   *AIModelAssignment `yaml:"compare_model"`
	MaxSourceChars *int               `yaml:"max_source_chars"`
	MaxChars       *int               `yaml:"max_chars"`
	Precompute     *bool              `yaml:"precompute"`
	WorkerLimit    *int               `yaml:"worker_limit"`
	Workers        *int               `yaml:"workers"`
}

type rawArchiveConfig struct {
	Enabled       *bool       `yaml:"enabled"`
	IntervalHours *int        `yaml:"interval_hours"`
	Keep          *int        `yaml:"keep"`
	S3            rawS3Config `yaml:"s3"`
}

type rawS3Config struct {
	Enabled         *bool  `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKey       string `yaml:"access_key"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SecretKey       string `yaml:"secret_key"`
	PathTemplate    string `yaml:"path_template"`
	ForcePathStyle  *bool  `yaml:"force_path_style"`
}

type rawNotifyConfig struct {
	BarkKey    string `yaml:"bark_key"`
	BarkServer string `yaml:"bark_server"`
	SiteTitle  string `yaml:"site_title"`
}
