package config

import (
	"flag"

	"github.com/dmitrijs2005/meditrack/internal/flagx"
)

// parseFlags overlays cfg with the flags it owns. Other flags in args are
// filtered out first. A malformed value panics, as with flag.PanicOnError.
func parseFlags(cfg *Config, args []string) {
	filtered := flagx.FilterArgs(args, []string{"-p", "-d", "-k", "-r", "-l"})

	fs := flag.NewFlagSet("meditrack", flag.ContinueOnError)
	fs.StringVar(&cfg.Platform, "p", cfg.Platform, "platform: native or web")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN (SQLite path or postgres:// URL)")
	fs.StringVar(&cfg.KVDriver, "k", cfg.KVDriver, "key-value driver: sqlite, redis or memory")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}
}
