// Package config loads runtime configuration for MediTrack.
//
// Sources, later ones override earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables (MEDITRACK_*), read with cleanenv.
//  4. Command-line flags.
//
// # Flags
//
//	-p string   platform: "native" (relational store) or "web" (key-value blob store)
//	-d string   database DSN: SQLite path or postgres:// URL
//	-k string   key-value driver: "sqlite", "redis" or "memory"
//	-r string   redis address host:port
//	-l string   log level
//
// # JSON
//
//	{
//	  "platform": "web",
//	  "database_dsn": "meditrack.db",
//	  "kv_driver": "redis",
//	  "redis_addr": "127.0.0.1:6379",
//	  "session_ttl": "720h",
//	  "log_format": "zap"
//	}
package config
