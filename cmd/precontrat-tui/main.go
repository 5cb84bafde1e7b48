package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/preference"
	"github.com/noah-isme/pedago-admin/internal/tui"
	"github.com/noah-isme/pedago-admin/internal/wizard"
	"github.com/noah-isme/pedago-admin/pkg/config"
	"github.com/noah-isme/pedago-admin/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	defaultAPI := fmt.Sprintf("http://localhost:%d%s", cfg.Port, cfg.APIPrefix)
	var (
		apiURL      = flag.String("api", defaultAPI, "API base URL serving teacher and class options")
		catalogURL  = flag.String("catalog", cfg.Catalog.Endpoint, "Module catalog endpoint, {id} is replaced by the class id")
		submitURL   = flag.String("submit", cfg.Submit.Endpoint, "Form submission endpoint, empty disables submission")
		csrfToken   = flag.String("csrf", os.Getenv("CSRF_TOKEN"), "CSRF token forwarded with the submission")
		themeFile   = flag.String("theme-file", "", "Preference file (defaults to the user config directory)")
		logFile     = flag.String("log", "", "Write logs to this file")
		noAltScreen = flag.Bool("inline", false, "Render inline instead of the alternate screen")
	)
	flag.Parse()

	logr := zap.NewNop()
	if *logFile != "" {
		if logr, err = logger.ToFile(cfg, *logFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
	}
	defer logr.Sync() //nolint:errcheck

	catalog, err := client.NewCatalogClient(client.CatalogConfig{
		Endpoint:       *catalogURL,
		Timeout:        cfg.Catalog.Timeout,
		ValidateSchema: cfg.Catalog.ValidateSchema,
		Logger:         logr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid catalog endpoint: %v\n", err)
		os.Exit(1)
	}

	deps := tui.Deps{
		Directory: client.NewDirectoryClient(strings.TrimRight(*apiURL, "/"), cfg.Catalog.Timeout),
		Catalog:   catalog,
		Logger:    logr,
	}
	if *submitURL != "" {
		deps.Submitter = client.NewFormPoster(client.FormPosterConfig{
			Endpoint: *submitURL,
			Timeout:  cfg.Submit.Timeout,
			Logger:   logr,
		})
	}

	path := *themeFile
	if path == "" {
		if path, err = preference.DefaultPath(); err != nil {
			logr.Warn("no preference directory, theme will not persist", zap.Error(err))
		}
	}
	if path != "" {
		deps.Themes = preference.NewFileStore(path)
	}

	hint := string(preference.ThemeLight)
	if lipgloss.HasDarkBackground() {
		hint = string(preference.ThemeDark)
	}

	model := tui.New(deps, tui.Options{
		Wizard: wizard.Config{
			Rates:    wizard.Rates{Lecture: cfg.Wizard.LectureRate, Tutorial: cfg.Wizard.TutorialRate},
			Currency: cfg.Wizard.Currency,
		},
		CSRFToken: *csrfToken,
		Timeout:   cfg.Catalog.Timeout,
		ThemeHint: hint,
	})

	var opts []tea.ProgramOption
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
