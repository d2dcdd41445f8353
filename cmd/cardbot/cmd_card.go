package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"cardbot/pkg/cards"
)

func cardCmd() {
	if len(os.Args) < 3 {
		cardHelp()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	catalog := cardCatalog(cfg)

	switch os.Args[2] {
	case "show":
		index := 0
		if len(os.Args) > 3 {
			index, err = strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Printf("Invalid card index %q\n", os.Args[3])
				os.Exit(1)
			}
		}
		if err := showCard(os.Stdout, catalog, index); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if failed := validateCards(os.Stdout, catalog); failed > 0 {
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown card command: %s\n", os.Args[2])
		cardHelp()
	}
}

func cardHelp() {
	fmt.Println("\nCard commands:")
	fmt.Println("  show [index]      Print the attachment for a configured card (default 0)")
	fmt.Println("  validate          Load every configured card and report failures")
}

func showCard(w io.Writer, catalog *cards.Catalog, index int) error {
	attachment, err := catalog.Load(index)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(attachment, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// validateCards loads every card in the catalog and returns how many failed.
func validateCards(w io.Writer, catalog *cards.Catalog) int {
	failed := 0
	for i, path := range catalog.Paths() {
		attachment, err := catalog.Load(i)
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		summary, err := cards.Describe(attachment)
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s)\n", path, summary)
	}
	fmt.Fprintf(w, "%d card(s), %d failed\n", catalog.Len(), failed)
	return failed
}
