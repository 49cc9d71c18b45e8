package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/pkg/auth"
)

func main() {
	flags := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	configPath := flags.String("config", "", "TOML config file (default $ROTA_CONFIG)")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: keygen [--config file] <userID>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}
	userID := flags.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.MasterSecret == "" {
		fmt.Fprintln(os.Stderr, "Error: API_MASTER_SECRET is not set")
		os.Exit(1)
	}

	key, err := auth.New(cfg.Auth).NewAPIKey(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated Key for %s:\n%s\n", userID, key)
}
