package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/termbind/internal/flagx"
	"github.com/dmitrijs2005/termbind/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "2s"
// or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	PollInterval       timex.Duration `json:"poll_interval"`
	IdentityFile       string         `json:"identity_file"`
}

// parseJson overlays Config with values loaded from a JSON file resolved via
// the -c/-config flags. Missing flag means no JSON is loaded. Read or
// unmarshal errors panic; the loader runs before anything else has started.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.PollInterval = time.Duration(jc.PollInterval.Duration)
	cfg.IdentityFile = jc.IdentityFile
}
