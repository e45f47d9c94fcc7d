package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar         = "APP_NAME"
	platformBaseURLVar = "PLATFORM_BASE_URL"
	sessionFileVar     = "SESSION_FILE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "authctl")
}

// GetPlatformBaseURL returns the base URL of the platform backend
// (e.g., "https://platform.example.com/api"). All non-IdP endpoints
// are resolved against it.
func (EnvVars) GetPlatformBaseURL() string {
	return GetEnv(platformBaseURLVar, "http://localhost:8080/api")
}

// GetSessionFile returns the path of the durable session file. Defaults to
// session.json under the user config directory.
func (EnvVars) GetSessionFile() string {
	if v := GetEnv(sessionFileVar, ""); v != "" {
		return v
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(configDir, "authctl", "session.json")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
