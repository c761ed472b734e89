package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds all runtime settings for the client apps.
	// Values come from defaults, an optional `config/.env.<env>` file and
	// environment variables prefixed with the current ENV name.
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		AppName  string

		RollbarToken string

		Backend BackendConfig
		Session SessionConfig
		Portal  PortalConfig
	}

	BackendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	SessionConfig struct {
		CredentialFile string
		CredentialTTL  time.Duration
		CacheTTL       time.Duration
	}

	PortalConfig struct {
		Address         string
		CookieName      string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Zubacap")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("backendBaseURL", "http://localhost:1337/api")
	v.SetDefault("backendTimeout", 30*time.Second)
	v.SetDefault("credentialFile", defaultCredentialFile())
	v.SetDefault("credentialTTL", 7*24*time.Hour)
	v.SetDefault("cacheTTL", 5*time.Minute)
	v.SetDefault("portalAddress", ":8080")
	v.SetDefault("portalCookieName", "token")
	v.SetDefault("portalShutdownTimeout", 5*time.Second)
	v.SetDefault("portalDisableReqLogs", false)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		RollbarToken: v.GetString("rollbarToken"),
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("backendBaseURL"), "/"),
			Timeout: v.GetDuration("backendTimeout"),
		},
		Session: SessionConfig{
			CredentialFile: v.GetString("credentialFile"),
			CredentialTTL:  v.GetDuration("credentialTTL"),
			CacheTTL:       v.GetDuration("cacheTTL"),
		},
		Portal: PortalConfig{
			Address:         v.GetString("portalAddress"),
			CookieName:      v.GetString("portalCookieName"),
			ShutdownTimeout: v.GetDuration("portalShutdownTimeout"),
			DisableReqLogs:  v.GetBool("portalDisableReqLogs"),
		},
	}
}

func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zubacap-credentials.json"
	}
	return filepath.Join(home, ".zubacap", "credentials.json")
}
