package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/termbind/internal/flagx"
	"github.com/dmitrijs2005/termbind/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "5s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	MasterSecret          string         `json:"master_secret"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	ADServers             []string       `json:"ad_servers"`
	ADShortName           string         `json:"ad_short_name"`
	ADDomain              string         `json:"ad_domain"`
	ADBaseDN              string         `json:"ad_base_dn"`
	ADDialTimeout         timex.Duration `json:"ad_dial_timeout"`
	CredentialStore       string         `json:"credential_store"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config flags; when
// absent, no JSON file is loaded. An unreadable or invalid file panics, as
// the server must not start on a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.MasterSecret = c.MasterSecret
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.ADServers = c.ADServers
	config.ADShortName = c.ADShortName
	config.ADDomain = c.ADDomain
	config.ADBaseDN = c.ADBaseDN
	config.ADDialTimeout = time.Duration(c.ADDialTimeout.Duration)
	config.CredentialStore = c.CredentialStore
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
