package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/meditrack/internal/flagx"
	"github.com/dmitrijs2005/meditrack/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields tell
// "absent" apart from "zero" so a file only overrides what it names.
type JsonConfig struct {
	Platform      *string         `json:"platform"`
	DatabaseDSN   *string         `json:"database_dsn"`
	KVDriver      *string         `json:"kv_driver"`
	RedisAddr     *string         `json:"redis_addr"`
	RedisPassword *string         `json:"redis_password"`
	RedisDB       *int            `json:"redis_db"`
	SecretKey     *string         `json:"secret_key"`
	SessionTTL    *timex.Duration `json:"session_ttl"`
	LogLevel      *string         `json:"log_level"`
	LogFormat     *string         `json:"log_format"`
}

// parseJson overlays cfg with the file named by -c/-config in args.
// A missing flag is not an error; an unreadable or malformed file is.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&cfg.Platform, jc.Platform)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.KVDriver, jc.KVDriver)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisPassword, jc.RedisPassword)
	setString(&cfg.SecretKey, jc.SecretKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.RedisDB != nil {
		cfg.RedisDB = *jc.RedisDB
	}
	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
