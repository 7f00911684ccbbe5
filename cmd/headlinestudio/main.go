package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TobiSchelling/headlinestudio/internal/config"
	"github.com/TobiSchelling/headlinestudio/internal/database"
	"github.com/TobiSchelling/headlinestudio/internal/fetch"
	"github.com/TobiSchelling/headlinestudio/internal/headlines"
	"github.com/TobiSchelling/headlinestudio/internal/llm"
	"github.com/TobiSchelling/headlinestudio/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	userFlag   string
	regionFlag string
	cfg        *config.Config
	logger     *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "headlinestudio",
	Short:   "Curate competitor headlines and rewrite them for the hearing aid campaign",
	Long:    "headlinestudio keeps a per-user selection of scraped headlines and rewrites them through a language model into compliant native-ad copy.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"

		// Skip config loading for init and version
		if cmd.Name() != "init" && cmd.Name() != "version" {
			path, err := config.ResolveConfigPath(configPath)
			if err != nil {
				return err
			}
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			level = cfg.Logging.Level
		}

		var err error
		logger, err = newLogger(level, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", os.Getenv("USER"), "User the command acts for")
	rootCmd.PersistentFlags().StringVar(&regionFlag, "region", "", "Region (US or DE); defaults to the config value")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(logCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("headlinestudio", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/headlinestudio/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the model provider and API key variable.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rc, err := requestContext()
		if err != nil {
			return err
		}
		stats, err := db.GetStats(rc)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		week := database.CurrentWeek()
		fmt.Printf("User: %s (%s)\n", rc.User, rc.Region)
		fmt.Printf("This week: %s\n\n", database.FormatWeekDisplay(week))
		fmt.Println("Selection:")
		fmt.Printf("  Selected: %d\n", stats.Selected)
		fmt.Printf("  With AI headline: %d\n", stats.SelectedGenerated)
		fmt.Printf("  Favorites: %d\n", stats.Favorites)
		fmt.Printf("  Top headline overrides: %d\n", stats.Overrides)
		fmt.Println("\nShared:")
		fmt.Printf("  Generated headlines: %d\n", stats.TotalGenerated)
		fmt.Printf("  Weeks with top headlines: %d\n", stats.WeeksAvailable)

		fmt.Println("\nProvider:")
		if p := llm.CreateProvider(cfg.Generation, logger); p != nil {
			fmt.Printf("  %s (%s): ready\n", cfg.Generation.Provider, cfg.Generation.Model)
		} else {
			fmt.Printf("  %s (%s): not configured\n", cfg.Generation.Provider, cfg.Generation.Model)
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv := server.New(db, newService(db), server.Options{
			Titles: fetch.NewTitleFetcher(cfg.Generation.Timeout()),
			Logger: logger,
			Region: cfg.Region,
		})

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "headlinestudio.db")
	return database.Open(dbPath)
}

func newService(db *database.DB) *headlines.Service {
	provider := llm.CreateProvider(cfg.Generation, logger)
	return headlines.New(db, provider, logger, headlines.OptionsFromConfig(cfg.Generation))
}

func requestContext() (database.RequestContext, error) {
	region := strings.ToUpper(strings.TrimSpace(regionFlag))
	switch region {
	case "":
		region = cfg.Region
	case "US", "DE":
	default:
		return database.RequestContext{}, fmt.Errorf("unsupported region %q (use US or DE)", regionFlag)
	}
	user := strings.TrimSpace(userFlag)
	if user == "" {
		return database.RequestContext{}, fmt.Errorf("no user: pass --user or set $USER")
	}
	return database.RequestContext{User: user, Region: region}, nil
}
