package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/termbind/internal/client/agent"
	"github.com/dmitrijs2005/termbind/internal/client/client"
	"github.com/dmitrijs2005/termbind/internal/client/config"
)

const usage = `usage: agent <command> [flags]

commands:
  pair       register this terminal and wait for approval
  login      authenticate with the terminal's signing key
  ad-login   authenticate with directory credentials
  creds      fetch stored directory credentials (prompts for login first)
  approve    approve a peer terminal: approve <peer-public-key-hex>
`

func main() {

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	ctx := context.Background()
	cfg := config.LoadConfig()

	identity, err := agent.LoadOrCreateIdentity(cfg.IdentityFile)
	if err != nil {
		log.Fatalf("identity error: %v", err)
	}

	a := agent.New(cfg, client.NewHTTPClient(cfg.ServerEndpointAddr), identity, os.Stdout)
	reader := bufio.NewReader(os.Stdin)

	switch command {
	case "pair":
		res, err := a.Pair(ctx)
		if err != nil {
			log.Fatalf("pairing failed: %v", err)
		}
		fmt.Printf("paired, token: %s\n", res.Token)
		fmt.Printf("payload: %s\n", res.Payload)

	case "login":
		token, err := a.SignatureLogin(ctx)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Printf("token: %s\n", token)

	case "ad-login":
		token, secret, err := a.DirectoryLogin(ctx, reader)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Printf("token: %s\nsecret: %s\n", token, secret)

	case "creds":
		token, _, err := a.DirectoryLogin(ctx, reader)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		fmt.Print("Username to look up\n> ")
		username, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("input error: %v", err)
		}
		user, password, err := a.NASCredentials(ctx, token, username[:len(username)-1])
		if err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		fmt.Printf("username: %s\npassword: %s\n", user, password)

	case "approve":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		token, secret, err := a.DirectoryLogin(ctx, reader)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := a.Approve(ctx, token, os.Args[2], []byte(secret)); err != nil {
			log.Fatalf("approval failed: %v", err)
		}
		fmt.Println("approved")

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
