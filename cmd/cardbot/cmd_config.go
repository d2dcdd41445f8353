package main

import (
	"fmt"
	"os"
	"strings"

	"cardbot/pkg/configops"
)

func configCmd() {
	if len(os.Args) < 3 {
		configHelp()
		return
	}

	switch os.Args[2] {
	case "set":
		configSetCmd()
	case "get":
		configGetCmd()
	case "check":
		configCheckCmd()
	default:
		fmt.Printf("Unknown config command: %s\n", os.Args[2])
		configHelp()
	}
}

func configHelp() {
	fmt.Println("\nConfig commands:")
	fmt.Println("  set <path> <value>     Set a config value (validated before writing)")
	fmt.Println("  get <path>             Get a config value")
	fmt.Println("  check                  Validate current config")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cardbot config set channels.bridge.enable true")
	fmt.Println("  cardbot config set cards.files '[\"Adaptivecard1.json\"]'")
	fmt.Println("  cardbot config get task_module.url")
	fmt.Println("  cardbot config check")
}

func configSetCmd() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: cardbot config set <path> <value>")
		return
	}

	configPath := getConfigPath()
	doc, err := configops.Load(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	path := configops.NormalizePath(os.Args[3])
	value, err := doc.Set(path, strings.Join(os.Args[4:], " "))
	if err != nil {
		fmt.Printf("Error setting value: %v\n", err)
		return
	}

	if _, err := doc.WriteAtomic(configPath); err != nil {
		fmt.Printf("Error writing config: %v\n", err)
		return
	}
	fmt.Printf("✓ Updated %s = %v\n", path, value)
	fmt.Println("Restart the gateway to apply.")
}

func configGetCmd() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: cardbot config get <path>")
		return
	}

	doc, err := configops.Load(getConfigPath())
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	path := configops.NormalizePath(os.Args[3])
	raw, ok := doc.Get(path)
	if !ok {
		fmt.Printf("Path not found: %s\n", path)
		return
	}
	fmt.Println(raw)
}

func configCheckCmd() {
	doc, err := configops.Load(getConfigPath())
	if err != nil {
		fmt.Printf("Config load failed: %v\n", err)
		return
	}
	if _, errs := doc.Check(); len(errs) > 0 {
		fmt.Println("✗ Config validation failed:")
		for _, ve := range errs {
			fmt.Printf("  - %v\n", ve)
		}
		os.Exit(1)
	}
	fmt.Println("✓ Config validation passed")
}
