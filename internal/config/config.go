package config

type Config interface {
	EnvConfig
	OAuthConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetPlatformBaseURL() string
	GetSessionFile() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	OAuth
	HTTP
}

func New() Config {
	return mainConfig{}
}
