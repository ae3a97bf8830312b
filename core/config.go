package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		Env              string
		Build            string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Server   ServerConfig
		BaaS     BaaSConfig
		Video    VideoConfig
		AI       AIConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CookieSecure              bool
	}

	BaaSConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	VideoConfig struct {
		MaxUploadSize         int64
		CORSOrigin            string
		UploadPollInterval    time.Duration
		UploadPollMaxAttempts int
		AssetPollInterval     time.Duration
		AssetPollMaxAttempts  int
	}

	AIConfig struct {
		Mode      string // baas | llm
		Provider  string // anthropic | openai | gemini | mock
		APIKey    string
		Model     string
		BaseURL   string
		MaxTokens int
		Retries   int
		Timeout   time.Duration
	}

	DatabaseConfig struct {
		Enabled       bool
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from viper defaults, then `config/.env.<env>` and finally `<ENV>_*` environment variables.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("build", "develop")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "Darasa <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Minute) // uploads
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.cookieSecure", false)

	v.SetDefault("baas.baseURL", "")
	v.SetDefault("baas.timeout", 15*time.Second)

	v.SetDefault("video.maxUploadSize", int64(5*1024*1024*1024))
	v.SetDefault("video.corsOrigin", "*")
	v.SetDefault("video.uploadPollInterval", 5*time.Second)
	v.SetDefault("video.uploadPollMaxAttempts", 30)
	v.SetDefault("video.assetPollInterval", 5*time.Second)
	v.SetDefault("video.assetPollMaxAttempts", 60)

	v.SetDefault("ai.mode", "baas")
	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.maxTokens", 1024)
	v.SetDefault("ai.retries", 3)
	v.SetDefault("ai.timeout", 60*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "darasa")
	v.SetDefault("database.user", "darasa")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return configFromViper(v, env, wd)
}

func configFromViper(v *viper.Viper, env, wd string) *Config {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		Env:              env,
		Build:            v.GetString("build"),
		WorkDir:          wd,
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			CookieSecure:              v.GetBool("server.cookieSecure"),
		},
		BaaS: BaaSConfig{
			BaseURL: strings.TrimRight(v.GetString("baas.baseURL"), "/"),
			Timeout: v.GetDuration("baas.timeout"),
		},
		Video: VideoConfig{
			MaxUploadSize:         v.GetInt64("video.maxUploadSize"),
			CORSOrigin:            v.GetString("video.corsOrigin"),
			UploadPollInterval:    v.GetDuration("video.uploadPollInterval"),
			UploadPollMaxAttempts: v.GetInt("video.uploadPollMaxAttempts"),
			AssetPollInterval:     v.GetDuration("video.assetPollInterval"),
			AssetPollMaxAttempts:  v.GetInt("video.assetPollMaxAttempts"),
		},
		AI: AIConfig{
			Mode:      v.GetString("ai.mode"),
			Provider:  v.GetString("ai.provider"),
			APIKey:    v.GetString("ai.apiKey"),
			Model:     v.GetString("ai.model"),
			BaseURL:   v.GetString("ai.baseURL"),
			MaxTokens: v.GetInt("ai.maxTokens"),
			Retries:   v.GetInt("ai.retries"),
			Timeout:   v.GetDuration("ai.timeout"),
		},
		Database: DatabaseConfig{
			Enabled:       v.GetBool("database.enabled"),
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
	}
}
