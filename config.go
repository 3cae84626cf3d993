// Store configuration and JSONC file loading.
//
// Config mirrors the recognized options in spec §6. LoadConfigFile adds
// tolerance for comments and trailing commas in an operator-edited
// config file, following calvinalkan-agent-task's use of hujson ahead
// of strict JSON unmarshaling.
package alexdb

import (
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tailscale/hujson"
)

// Config holds the recognized Store configuration options (spec §6).
type Config struct {
	// DataDir is the directory snapshots are read from and written to.
	// When empty, Save and Restore are no-ops.
	DataDir string

	// SaveTriggeredAfter is the minimum wall-clock interval between
	// snapshots once SaveTriggeredByThreshold writes have accumulated.
	SaveTriggeredAfter time.Duration

	// SaveTriggeredByThreshold is the minimum number of writes since
	// the last snapshot before Save will act.
	SaveTriggeredByThreshold uint64

	// EnableSecurityAPIKeys, when false, tells a collaborator HTTP
	// layer to grant access unconditionally without consulting the
	// access gate.
	EnableSecurityAPIKeys bool
}

// DefaultConfig returns the defaults the original source ships: no
// persistence, a 5-write / 300-second hybrid save trigger, and API-key
// security disabled.
func DefaultConfig() Config {
	return Config{
		SaveTriggeredAfter:       300 * time.Second,
		SaveTriggeredByThreshold: 5,
		EnableSecurityAPIKeys:    false,
	}
}

// configFile is the JSON shape LoadConfigFile reads. Durations are
// seconds on disk so operators don't have to hand-write Go duration
// strings.
type configFile struct {
	DataDir                  string `json:"data_dir"`
	SaveTriggeredAfterSecs   int64  `json:"save_triggered_after_secs"`
	SaveTriggeredByThreshold uint64 `json:"save_triggered_by_threshold"`
	EnableSecurityAPIKeys    bool   `json:"enable_security_api_keys"`
}

// LoadConfigFile reads a JSON-with-comments config file (trailing
// commas and // and /* */ comments are tolerated) and returns the
// Config it describes.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, err
	}

	var cf configFile
	if err := json.Unmarshal(standardized, &cf); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.DataDir = cf.DataDir
	cfg.EnableSecurityAPIKeys = cf.EnableSecurityAPIKeys
	if cf.SaveTriggeredAfterSecs > 0 {
		cfg.SaveTriggeredAfter = time.Duration(cf.SaveTriggeredAfterSecs) * time.Second
	}
	if cf.SaveTriggeredByThreshold > 0 {
		cfg.SaveTriggeredByThreshold = cf.SaveTriggeredByThreshold
	}
	return cfg, nil
}
