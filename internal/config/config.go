package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config at configPath, applies defaults for missing
// fields and validates the result. Unknown keys are rejected.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyRawAppConfig(&cfg, raw)
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if !isKnownIndexDriver(cfg.Index.Driver) {
		return nil, fmt.Errorf("invalid index.driver %q in %q, expected jsonfile, sqlite or mysql", cfg.Index.Driver, path)
	}
	if cfg.Index.Driver == IndexDriverMySQL && cfg.Index.DSN == "" {
		return nil, fmt.Errorf("index.driver mysql requires index.dsn in %q", path)
	}
	if cfg.Archive.Enabled && cfg.Archive.IntervalHours < 1 {
		return nil, fmt.Errorf("invalid archive.interval_hours %d in %q, expected >= 1", cfg.Archive.IntervalHours, path)
	}
	if cfg.Archive.S3.Enabled && cfg.Archive.S3.Bucket == "" {
		return nil, fmt.Errorf("archive.s3.enabled requires archive.s3.bucket in %q", path)
	}
	for i, provider := range cfg.AI.Providers {
		if !isKnownProviderType(provider.Type) {
			return nil, fmt.Errorf("invalid ai.providers[%d].type %q in %q", i, provider.Type, path)
		}
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Index: IndexConfig{
			Driver: defaultIndexDriver,
		},
		AI: AIConfig{
			MaxSourceChars: defaultMaxSourceChars,
			Precompute:     true,
			WorkerLimit:    defaultWorkerLimit,
		},
		Archive: ArchiveConfig{
			IntervalHours: defaultArchiveIntervalHours,
			Keep:          defaultArchiveKeep,
			S3: S3Config{
				PathTemplate: defaultArchivePathTemplate,
			},
		},
		Notify: NotifyConfig{
			SiteTitle: defaultSiteTitle,
		},
	}
	cfg.Env = normalizeEnv(cfg.Env)
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TimeZone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.Paths.Data); v != "" {
		cfg.Paths.Data = v
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.Paths.Data = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogsDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Archives); v != "" {
		cfg.Paths.Archives = v
	}
	if v := strings.TrimSpace(raw.ArchiveDir); v != "" {
		cfg.Paths.Archives = v
	}
	if v := strings.TrimSpace(raw.ArchivesDir); v != "" {
		cfg.Paths.Archives = v
	}

	if v := strings.TrimSpace(raw.Security.AdminToken); v != "" {
		cfg.Security.AdminToken = v
	}
	if v := strings.TrimSpace(raw.Security.Token); v != "" {
		cfg.Security.AdminToken = v
	}
	if v := strings.TrimSpace(raw.AdminToken); v != "" {
		cfg.Security.AdminToken = v
	}

	if v := strings.TrimSpace(raw.Index.Driver); v != "" {
		cfg.Index.Driver = v
	}
	if v := strings.TrimSpace(raw.IndexDriver); v != "" {
		cfg.Index.Driver = v
	}
	if v := strings.TrimSpace(raw.Index.DSN); v != "" {
		cfg.Index.DSN = v
	}
	if v := strings.TrimSpace(raw.Index.URL); v != "" {
		cfg.Index.DSN = v
	}
	if v := strings.TrimSpace(raw.IndexDSN); v != "" {
		cfg.Index.DSN = v
	}

	cfg.AI = applyRawAIConfig(cfg.AI, raw.AI)
	cfg.Archive = applyRawArchiveConfig(cfg.Archive, raw.Archive)

	if v := strings.TrimSpace(raw.Notify.BarkKey); v != "" {
		cfg.Notify.BarkKey = v
	}
	if v := strings.TrimSpace(raw.BarkKey); v != "" {
		cfg.Notify.BarkKey = v
	}
	if v := strings.TrimSpace(raw.Notify.BarkServer); v != "" {
		cfg.Notify.BarkServer = v
	}
	if v := strings.TrimSpace(raw.BarkServer); v != "" {
		cfg.Notify.BarkServer = v
	}
	if v := strings.TrimSpace(raw.Notify.SiteTitle); v != "" {
		cfg.Notify.SiteTitle = v
	}
	if v := strings.TrimSpace(raw.SiteTitle); v != "" {
		cfg.Notify.SiteTitle = v
	}

	cfg.Security.AdminToken = expandEnv(cfg.Security.AdminToken)
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Index = normalizeIndexConfig(cfg.Index)
	cfg.AI = normalizeAIConfig(cfg.AI)
	cfg.Archive = normalizeArchiveConfig(cfg.Archive)
	cfg.Notify = normalizeNotifyConfig(cfg.Notify)
	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawAIConfig(current AIConfig, raw rawAIConfig) AIConfig {
	cfg := current

	if raw.Providers != nil {
		cfg.Providers = raw.Providers
	}
	if raw.InsightModel != nil {
		v := *raw.InsightModel
		cfg.InsightModel = &v
	}
	if raw.CompareModel != nil {
		v := *raw.CompareModel
		cfg.CompareModel = &v
	}
	if raw.MaxSourceChars != nil {
		cfg.MaxSourceChars = *raw.MaxSourceChars
	}
	if raw.MaxChars != nil {
		cfg.MaxSourceChars = *raw.MaxChars
	}
	if raw.Precompute != nil {
		cfg.Precompute = *raw.Precompute
	}
	if raw.WorkerLimit != nil {
		cfg.WorkerLimit = *raw.WorkerLimit
	}
	if raw.Workers != nil {
		cfg.WorkerLimit = *raw.Workers
	}
	return cfg
}

func applyRawArchiveConfig(current ArchiveConfig, raw rawArchiveConfig) ArchiveConfig {
	cfg := current

	if raw.Enabled != nil {
		cfg.Enabled = *raw.Enabled
	}
	if raw.IntervalHours != nil {
		cfg.IntervalHours = *raw.IntervalHours
	}
	if raw.Keep != nil {
		cfg.Keep = *raw.Keep
	}
	if raw.S3.Enabled != nil {
		cfg.S3.Enabled = *raw.S3.Enabled
	}
	if v := strings.TrimSpace(raw.S3.Bucket); v != "" {
		cfg.S3.Bucket = v
	}
	if v := strings.TrimSpace(raw.S3.Region); v != "" {
		cfg.S3.Region = v
	}
	if v := strings.TrimSpace(raw.S3.Endpoint); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := strings.TrimSpace(raw.S3.AccessKeyID); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := strings.TrimSpace(raw.S3.AccessKey); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := strings.TrimSpace(raw.S3.SecretAccessKey); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if v := strings.TrimSpace(raw.S3.SecretKey); v != "" {
		cfg.S3.SecretAccessKey = v
	}
	if v := strings.TrimSpace(raw.S3.PathTemplate); v != "" {
		cfg.S3.PathTemplate = v
	}
	if raw.S3.ForcePathStyle != nil {
		cfg.S3.ForcePathStyle = *raw.S3.ForcePathStyle
	}
	return cfg
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// DataDir resolves the root directory holding uploads, insights and the
// jsonfile index. SYLLABIND_DATA_DIR wins over the configured path.
func (c *AppConfig) DataDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvDataDir)); dir != "" {
		return ResolveRuntimePath(dir, "data")
	}
	if c == nil {
		return ResolveRuntimePath("", "data")
	}
	return ResolveRuntimePath(c.Paths.Data, "data")
}

func (c *AppConfig) UploadsDir() string {
	return filepath.Join(c.DataDir(), "uploads")
}

func (c *AppConfig) InsightsDir() string {
	return filepath.Join(c.DataDir(), "insights")
}

func (c *AppConfig) IndexPath() string {
	return filepath.Join(c.DataDir(), "index.json")
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// ArchiveDir lives outside DataDir so snapshots never include themselves.
func (c *AppConfig) ArchiveDir() string {
	if c == nil {
		return ResolveRuntimePath("", "archives")
	}
	return ResolveRuntimePath(c.Paths.Archives, "archives")
}

// AdminToken returns the token protecting mutating admin endpoints.
// Empty means the endpoints are open, which is only sensible in dev.
func (c *AppConfig) AdminToken() string {
	if token := strings.TrimSpace(os.Getenv(EnvAdminToken)); token != "" {
		return token
	}
	if c == nil {
		return ""
	}
	return c.Security.AdminToken
}

// ProviderByID finds a configured AI provider regardless of enabled state.
func (c *AIConfig) ProviderByID(id string) (AIProvider, bool) {
	target := strings.TrimSpace(id)
	if target == "" {
		return AIProvider{}, false
	}
	for _, provider := range c.Providers {
		if strings.EqualFold(provider.ID, target) {
			return provider, true
		}
	}
	return AIProvider{}, false
}

// FirstEnabledProvider returns the first enabled provider with an API key.
func (c *AIConfig) FirstEnabledProvider() (AIProvider, bool) {
	for _, provider := range c.Providers {
		if provider.Enabled && provider.APIKey != "" {
			return provider, true
		}
	}
	return AIProvider{}, false
}

func isKnownIndexDriver(driver string) bool {
	switch driver {
	case IndexDriverJSONFile, IndexDriverSQLite, IndexDriverMySQL:
		return true
	}
	return false
}

func isKnownProviderType(providerType string) bool {
	switch providerType {
	case ProviderOpenAI, ProviderOpenAICompatible, ProviderAnthropic, ProviderOpenRouter:
		return true
	}
	return false
}
