// Package config handles configuration loading for retinal-ledger.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from RETINAL_CONFIG environment variable
//  2. ~/.config/retinal/config.yaml
//
// A missing file is not an error: defaults apply, with the admin secret
// taken from RETINAL_ADMIN_SECRET. Files ending in .toml are parsed as TOML.
//
// # Environment Variable Expansion
//
//	auth:
//	  admin_secret: "${RETINAL_ADMIN_SECRET}"
//
// # Configuration Sections
//
//	database:
//	  driver: "sqlite"     # sqlite (pure Go) or sqlite3 (cgo)
//	  path: "~/.local/share/retinal/retinal.db"
//
//	cache:
//	  backend: "local"     # memory, local, redis
//	  path: "~/.local/share/retinal/cache.db"
//	  prefix: "retinal-ai"
//	  redis:
//	    addr: "localhost:6379"
//	    password: ""
//	    db: 0
//
//	auth:
//	  bcrypt_cost: 12
//	  admin_secret: "${RETINAL_ADMIN_SECRET}"   # at least 32 bytes
//	  admin_token_ttl: "24h"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
