package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/termbind/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-m string   master secret for identity derivation
//	-t int      session token validity, minutes
//	-l string   directory servers, comma-separated host:port list
//	-n string   directory short name (bind domain prefix)
//	-o string   directory full domain name
//	-q string   directory base DN
//	-k string   credential store backend ("postgres" or "s3")
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-m", "-t", "-l", "-n", "-o", "-q", "-k", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.MasterSecret, "m", config.MasterSecret, "master secret")

	tokenValidityDuration := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")
	adServers := fs.String("l", strings.Join(config.ADServers, ","), "directory servers (comma-separated)")

	fs.StringVar(&config.ADShortName, "n", config.ADShortName, "directory short name")
	fs.StringVar(&config.ADDomain, "o", config.ADDomain, "directory domain")
	fs.StringVar(&config.ADBaseDN, "q", config.ADBaseDN, "directory base DN")
	fs.StringVar(&config.CredentialStore, "k", config.CredentialStore, "credential store backend")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidityDuration) * time.Minute

	servers := make([]string, 0)
	for _, s := range strings.Split(*adServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	config.ADServers = servers
}
