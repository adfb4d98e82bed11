package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/nocturne9/favgrid/internal/adapter"
	"github.com/nocturne9/favgrid/internal/booru"
	"github.com/nocturne9/favgrid/internal/cache"
	"github.com/nocturne9/favgrid/internal/service"
	"github.com/nocturne9/favgrid/internal/store"
	"github.com/nocturne9/favgrid/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("favgrid %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting favgrid", "version", Version)

	if !cfg.IsConfigured() {
		return runSetupFlow(cfg)
	}

	client := booru.NewClient(cfg.Site.Host, cfg.Site.Username, cfg.Site.APIKey, logger)

	blobs, err := store.NewBlobStore(adapter.GetCachePath())
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	defer blobs.Close()

	userData := cache.NewUserData(cfg.Site.Username, blobs, logger)
	svc := service.NewPostService(client, userData, logger)

	model := tui.NewModel(svc, cfg.Preferences)

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *adapter.Config) error {
	fmt.Println()
	fmt.Println("Welcome to favgrid!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	host, err := promptLine(reader, "Board URL (e.g. https://e926.net): ")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	username, err := promptLine(reader, "Username: ")
	if err != nil {
		return err
	}

	fmt.Print("API key: ")
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	cfg.Site.Host = host
	cfg.Site.Username = username
	cfg.Site.APIKey = strings.TrimSpace(string(keyBytes))

	if !cfg.IsConfigured() {
		return fmt.Errorf("host, username, and API key are all required")
	}

	if err := adapter.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run favgrid again to start the application.")
	return nil
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	for {
		fmt.Print(prompt)
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		if input = strings.TrimSpace(input); input != "" {
			return input, nil
		}
		fmt.Println("Value cannot be empty. Please try again.")
	}
}
