package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/codeeasy/internal/config"
)

const defaultConfigPath = "codeeasy.yaml"

// cmdInit writes a default configuration file
func cmdInit(args []string) error {
	path := defaultConfigPath
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Configuration already exists at %s ✓\n", path)
		return nil
	}

	fmt.Printf("Creating default configuration at %s... ", path)
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		fmt.Println("✗")
		return err
	}
	fmt.Println("✓")

	cfg := config.DefaultConfig()
	dir, err := cfg.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	fmt.Println()
	fmt.Printf("Data directory: %s\n", dir)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Point content.root at your tracks directory")
	fmt.Println("  2. Set judge.url (or PISTON_URL / JUDGE0_URL)")
	fmt.Println("  3. Run 'codeeasy start'")
	return nil
}

// cmdConfig prints the effective configuration
func cmdConfig() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir, _ := cfg.DataDir()
	fmt.Printf("# data directory: %s\n", dir)
	if cfg.Judge.APIKey != "" {
		fmt.Println("# judge API key: configured")
	}
	fmt.Print(string(data))
	return nil
}
