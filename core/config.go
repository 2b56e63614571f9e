package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName         string
		Build           string
		Env             string // DEV (local; default), TEST, QA, PROD
		Debug           bool
		TestMode        bool
		SecretKey       string
		FrontendBaseURL string
		WorkDir         string

		Server    ServerConfig
		Database  DatabaseConfig
		Mail      MailConfig
		Paysafe   PaysafeConfig
		Scheduler SchedulerConfig
		Client    ClientConfig

		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		UploadDir                 string
		MaxUploadSize             int64 // bytes
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MailConfig struct {
		DefaultFromName  string
		DefaultFromEmail string
		SendgridApiKey   string
	}

	PaysafeConfig struct {
		BaseURL   string
		ApiKey    string
		ApiSecret string
		AccountID string
		Timeout   time.Duration
	}

	SchedulerConfig struct {
		TutorDigestSpec string // cron spec; empty disables the job
	}

	ClientConfig struct {
		BaseURL string
		Timeout time.Duration
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (mc MailConfig) DefaultFrom() mail.Address {
	return mail.Address{Name: mc.DefaultFromName, Address: mc.DefaultFromEmail}
}

// NewConfig loads the configuration from the environment, optionally seeded by `config/.env.<env>`.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Campus")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "x9!m2q(8bz@u#t1c$e7k&o0w^h)p3l5r-f6j+a4n=vdy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("uploadDir", "uploads")
	v.SetDefault("maxUploadSize", int64(32<<20))

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "campus")
	v.SetDefault("dbUser", "campus")
	v.SetDefault("dbPassword", "campus")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("defaultFromName", "Campus")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("paysafeBaseURL", "https://api.test.paysafe.com")
	v.SetDefault("paysafeApiKey", "")
	v.SetDefault("paysafeApiSecret", "")
	v.SetDefault("paysafeAccountID", "")
	v.SetDefault("paysafeTimeout", 30*time.Second)

	v.SetDefault("tutorDigestSpec", "0 7 * * *")

	v.SetDefault("clientBaseURL", "http://localhost:8000")
	v.SetDefault("clientTimeout", 30*time.Second)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		WorkDir:         workDir,
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
			UploadDir:                 v.GetString("uploadDir"),
			MaxUploadSize:             v.GetInt64("maxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Mail: MailConfig{
			DefaultFromName:  v.GetString("defaultFromName"),
			DefaultFromEmail: v.GetString("defaultFromEmail"),
			SendgridApiKey:   v.GetString("sendgridApiKey"),
		},
		Paysafe: PaysafeConfig{
			BaseURL:   v.GetString("paysafeBaseURL"),
			ApiKey:    v.GetString("paysafeApiKey"),
			ApiSecret: v.GetString("paysafeApiSecret"),
			AccountID: v.GetString("paysafeAccountID"),
			Timeout:   v.GetDuration("paysafeTimeout"),
		},
		Scheduler: SchedulerConfig{
			TutorDigestSpec: v.GetString("tutorDigestSpec"),
		},
		Client: ClientConfig{
			BaseURL: v.GetString("clientBaseURL"),
			Timeout: v.GetDuration("clientTimeout"),
		},
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}
}

// NewTestConfig returns a Config suitable for unit tests: no .env lookup, no external services.
func NewTestConfig() *Config {
	return &Config{
		AppName:         "Campus",
		Build:           "test",
		Env:             "TEST",
		TestMode:        true,
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:3000",
		Server: ServerConfig{
			Address:                   ":0",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
			MaxUploadSize:             1 << 20,
		},
		Mail: MailConfig{
			DefaultFromName:  "Campus",
			DefaultFromEmail: "noreply@localhost",
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}
