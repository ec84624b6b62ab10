package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/termbind/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server
//	-i int      initial pairing poll interval in seconds
//	-f string   identity file path
//
// The function filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the backend server")
	pollInterval := fs.Int("i", int(cfg.PollInterval.Seconds()), "pairing poll interval (in seconds)")
	fs.StringVar(&cfg.IdentityFile, "f", cfg.IdentityFile, "identity file path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*pollInterval) * time.Second
}
