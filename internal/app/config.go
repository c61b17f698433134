package app

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/utils"
)

type Config struct {
	Port              string
	JWTSecretKey      string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ChatRetentionDays int
	SOSKeywords       []string
}

// fileConfig is the optional yaml overlay (CONFIG_FILE). Environment
// variables always win over file values.
type fileConfig struct {
	Port              string   `yaml:"port"`
	JWTSecretKey      string   `yaml:"jwt_secret_key"`
	AccessTokenTTL    int      `yaml:"access_token_ttl_seconds"`
	RefreshTokenTTL   int      `yaml:"refresh_token_ttl_seconds"`
	ChatRetentionDays int      `yaml:"chat_retention_days"`
	SOSKeywords       []string `yaml:"sos_keywords"`
}

func LoadConfig(log *logger.Logger) Config {
	fc := loadFileConfig(log)

	port := fc.Port
	if port == "" {
		port = "8080"
	}
	jwtDefault := fc.JWTSecretKey
	if jwtDefault == "" {
		jwtDefault = "defaultsecret"
	}
	accessDefault := fc.AccessTokenTTL
	if accessDefault <= 0 {
		accessDefault = 1800
	}
	refreshDefault := fc.RefreshTokenTTL
	if refreshDefault <= 0 {
		refreshDefault = 604800
	}
	retentionDefault := fc.ChatRetentionDays
	if retentionDefault <= 0 {
		retentionDefault = 15
	}

	return Config{
		Port:              utils.GetEnv("PORT", port, log),
		JWTSecretKey:      utils.GetEnv("JWT_SECRET_KEY", jwtDefault, log),
		AccessTokenTTL:    time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL", accessDefault, log)) * time.Second,
		RefreshTokenTTL:   time.Duration(utils.GetEnvAsInt("REFRESH_TOKEN_TTL", refreshDefault, log)) * time.Second,
		ChatRetentionDays: utils.GetEnvAsInt("CHAT_RETENTION_DAYS", retentionDefault, log),
		SOSKeywords:       loadSOSKeywords(fc.SOSKeywords),
	}
}

// loadSOSKeywords returns the SOS_KEYWORDS env list (comma separated),
// the yaml list, or nil so the detector falls back to its built-in set.
func loadSOSKeywords(fromFile []string) []string {
	raw := strings.TrimSpace(os.Getenv("SOS_KEYWORDS"))
	if raw == "" {
		return fromFile
	}
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

func loadFileConfig(log *logger.Logger) fileConfig {
	var fc fileConfig
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return fc
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Could not read config file, using env/defaults", "path", path, "error", err.Error())
		return fc
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		log.Warn("Could not parse config file, using env/defaults", "path", path, "error", err.Error())
		return fileConfig{}
	}
	return fc
}
