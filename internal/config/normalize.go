package config

import (
	"os"
	"regexp"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references with the variable's value so
// secrets can stay out of the YAML file. Unset variables expand to the
// empty string; bare $ characters pass through untouched.
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	paths.Data = strings.TrimSpace(paths.Data)
	paths.Logs = strings.TrimSpace(paths.Logs)
	paths.Archives = strings.TrimSpace(paths.Archives)
	return paths
}

func normalizeIndexConfig(cfg IndexConfig) IndexConfig {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = defaultIndexDriver
	}
	cfg.DSN = expandEnv(strings.TrimSpace(cfg.DSN))
	return cfg
}

func normalizeAIConfig(cfg AIConfig) AIConfig {
	providers := make([]AIProvider, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		normalized := normalizeAIProvider(provider)
		if normalized.ID == "" {
			continue
		}
		providers = append(providers, normalized)
	}
	cfg.Providers = providers

	cfg.InsightModel = normalizeAssignment(cfg.InsightModel)
	cfg.CompareModel = normalizeAssignment(cfg.CompareModel)

	if cfg.MaxSourceChars <= 0 {
		cfg.MaxSourceChars = defaultMaxSourceChars
	}
	if cfg.WorkerLimit < 1 {
		cfg.WorkerLimit = 1
	}
	return cfg
}

func normalizeAIProvider(provider AIProvider) AIProvider {
	provider.ID = strings.TrimSpace(provider.ID)
	provider.Name = strings.TrimSpace(provider.Name)
	provider.Type = canonicalProviderType(provider.Type)
	provider.APIKey = expandEnv(strings.TrimSpace(provider.APIKey))
	provider.Endpoint = strings.TrimRight(expandEnv(strings.TrimSpace(provider.Endpoint)), "/")
	provider.DefaultModel = strings.TrimSpace(provider.DefaultModel)

	if provider.Name == "" {
		provider.Name = provider.ID
	}
	if provider.APIKey == "" {
		provider.APIKey = strings.TrimSpace(os.Getenv(providerKeyEnv(provider.Type)))
	}
	return provider
}

func canonicalProviderType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "openai":
		return ProviderOpenAI
	case "openai-compatible", "openai_compatible", "compatible":
		return ProviderOpenAICompatible
	case "anthropic", "claude":
		return ProviderAnthropic
	case "openrouter":
		return ProviderOpenRouter
	}
	return strings.TrimSpace(raw)
}

// providerKeyEnv maps a provider type to the conventional API key variable
// so keys can stay out of the YAML file.
func providerKeyEnv(providerType string) string {
	switch providerType {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func normalizeAssignment(assignment *AIModelAssignment) *AIModelAssignment {
	if assignment == nil {
		return nil
	}
	next := AIModelAssignment{
		ProviderID: strings.TrimSpace(assignment.ProviderID),
		Model:      strings.TrimSpace(assignment.Model),
	}
	if next.ProviderID == "" && next.Model == "" {
		return nil
	}
	return &next
}

func normalizeArchiveConfig(cfg ArchiveConfig) ArchiveConfig {
	if cfg.Keep < 0 {
		cfg.Keep = 0
	}
	cfg.S3.Bucket = strings.TrimSpace(cfg.S3.Bucket)
	cfg.S3.Region = strings.TrimSpace(cfg.S3.Region)
	cfg.S3.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.S3.Endpoint), "/")
	cfg.S3.AccessKeyID = expandEnv(strings.TrimSpace(cfg.S3.AccessKeyID))
	cfg.S3.SecretAccessKey = expandEnv(strings.TrimSpace(cfg.S3.SecretAccessKey))
	cfg.S3.PathTemplate = strings.TrimSpace(cfg.S3.PathTemplate)
	if cfg.S3.PathTemplate == "" {
		cfg.S3.PathTemplate = defaultArchivePathTemplate
	}
	return cfg
}

func normalizeNotifyConfig(cfg NotifyConfig) NotifyConfig {
	cfg.BarkKey = expandEnv(strings.TrimSpace(cfg.BarkKey))
	cfg.BarkServer = strings.TrimRight(strings.TrimSpace(cfg.BarkServer), "/")
	cfg.SiteTitle = strings.TrimSpace(cfg.SiteTitle)
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = defaultSiteTitle
	}
	return cfg
}
