package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Upper bound for a single dispatched request against the store.
const StoreOperationTimeout = 30 * time.Second

// WebSocket keepalive
const (
	WSWriteWait  = 10 * time.Second
	WSPongWait   = 90 * time.Second
	WSPingPeriod = (WSPongWait * 9) / 10
)
