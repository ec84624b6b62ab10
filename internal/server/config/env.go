package config

import (
	"os"
	"strings"
	"time"
)

// parseEnv overlays configuration from environment variables. Only set
// variables override; empty/unset ones leave earlier values intact.
//
// The directory settings in particular are expected to arrive this way in
// deployments: AD_SERVERS is a comma-separated host:port list.
func parseEnv(config *Config) {
	setString := func(name string, target *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}
	setDuration := func(name string, target *time.Duration) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*target = d
			}
		}
	}

	setString("ADDRESS", &config.EndpointAddr)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SECRET_KEY", &config.SecretKey)
	setString("MASTER_SECRET", &config.MasterSecret)
	setDuration("TOKEN_VALIDITY_DURATION", &config.TokenValidityDuration)

	if v, ok := os.LookupEnv("AD_SERVERS"); ok && v != "" {
		servers := make([]string, 0)
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				servers = append(servers, s)
			}
		}
		if len(servers) > 0 {
			config.ADServers = servers
		}
	}
	setString("AD_SHORT_NAME", &config.ADShortName)
	setString("AD_DOMAIN", &config.ADDomain)
	setString("AD_BASE_DN", &config.ADBaseDN)
	setDuration("AD_DIAL_TIMEOUT", &config.ADDialTimeout)

	setString("CREDENTIAL_STORE", &config.CredentialStore)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}
