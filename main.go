package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"atmfinder/cmd"
	"atmfinder/internal/db"
	"atmfinder/internal/locator"
	"atmfinder/internal/logging"
	"atmfinder/internal/metrics"
	"atmfinder/internal/model"
	"atmfinder/internal/search"
	"atmfinder/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// version is set at build time via -ldflags
var version = "dev"

const (
	demoCount = 60
	demoSeed  = 42
	demoDelay = 400 * time.Millisecond
)

func main() {
	// Parse CLI flags
	config, err := cmd.ParseFlags(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if config.ShowVersion {
		fmt.Println("atmfinder", version)
		return
	}

	// Logs go to a file; the terminal belongs to the UI.
	logCfg := logging.DefaultConfig()
	logCfg.Level = config.LogLevel
	if config.LogFile != "" {
		f, err := logging.OpenFile(config.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logCfg.Output = f
	}
	logger := logging.Setup(logCfg)
	logger.Info().Str("version", version).Bool("demo", config.Demo).Msg("starting atmfinder")

	metrics.SetBuildInfo(version)

	var (
		searcher search.Searcher
		source   string
	)
	if config.Demo {
		searcher = search.NewFixtureSearcher(config.Origin, config.Unit, demoCount, demoSeed).WithDelay(demoDelay)
		source = "demo data"
	} else {
		searcher = search.NewClient(config.APIURL, config.APIKey)
		source = config.APIURL
		if config.CacheTTL > 0 {
			database, err := db.Open(config.DBPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
				os.Exit(1)
			}
			defer database.Close()

			cached := search.NewCachedSearcher(searcher, database, config.CacheTTL)
			if n, err := cached.Prune(); err != nil {
				logger.Warn().Err(err).Msg("cache prune failed")
			} else if n > 0 {
				logger.Debug().Int64("pruned", n).Msg("pruned stale cache pages")
			}
			searcher = cached
		}
	}

	app := ui.New(searcher, ui.Config{
		Origin: config.Origin,
		Params: locator.Params{
			Unit:       config.Unit,
			PostalCode: config.PostalCode,
			Country:    config.Country,
			PageLength: config.PageLength,
		},
		Zoom:       config.Zoom,
		SourceName: source,
		PrefsDir:   config.ConfigDir,
	})

	// Create and run Bubble Tea app
	p := tea.NewProgram(app, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, config.MetricsAddr); err != nil {
				p.Send(model.ErrorMsg{Err: fmt.Errorf("metrics endpoint %s: %w", config.MetricsAddr, err)})
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}
