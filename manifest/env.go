package manifest

import (
	"github.com/xyproto/env/v2"
)

// Environment variables that override rpal.toml settings.
const (
	EnvCache    = "RPAL_CACHE"
	EnvNoCache  = "RPAL_NO_CACHE"
	EnvLogLevel = "RPAL_LOG_LEVEL"
	EnvMaxSteps = "RPAL_MAX_STEPS"
	EnvAddr     = "RPAL_ADDR"
	EnvGRPCAddr = "RPAL_GRPC_ADDR"
)

// ApplyEnv overrides settings from the environment. Setting RPAL_CACHE
// also enables the cache; RPAL_NO_CACHE disables it.
func (m *Manifest) ApplyEnv() {
	if env.Has(EnvCache) {
		m.Cache.Path = env.Str(EnvCache, m.Cache.Path)
		m.Cache.Enabled = true
	}
	if env.Bool(EnvNoCache) {
		m.Cache.Enabled = false
	}
	m.Log.Level = env.Str(EnvLogLevel, m.Log.Level)
	m.Run.MaxSteps = env.Int(EnvMaxSteps, m.Run.MaxSteps)
	m.Server.Addr = env.Str(EnvAddr, m.Server.Addr)
	m.Server.GRPCAddr = env.Str(EnvGRPCAddr, m.Server.GRPCAddr)
}
