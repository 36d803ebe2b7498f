package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steveyegge/syncpad/internal/remote"
	"github.com/steveyegge/syncpad/internal/store"
	"github.com/steveyegge/syncpad/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "syncpad",
	Short: "Personal tasks and notes with background sync",
	Long: `syncpad keeps tasks and notes in a local SQLite database and
reconciles them with a remote record server.

All commands work offline. Records created or edited while offline are
marked pending and picked up by the next sync cycle.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.syncpad/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default ~/.syncpad)")
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

// initConfig reads the config file and environment. Missing config files
// are fine; every key has a default.
func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".syncpad"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SYNCPAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("remote.url", "")
	viper.SetDefault("remote.token", "")
	viper.SetDefault("sync.enabled", false)
	viper.SetDefault("sync.interval_minutes", 5)
	viper.SetDefault("daemon.inbox_dir", "")
	viper.SetDefault("daemon.log_file", "")
	viper.SetDefault("dashboard.port", 8090)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".syncpad"
	}
	return filepath.Join(home, ".syncpad")
}

// openStore opens the database under the configured data directory.
func openStore() (*store.DB, error) {
	dataDir := viper.GetString("data_dir")
	db, err := store.Open(filepath.Join(dataDir, "syncpad.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// buildEngine wires the sync engine from config. The remote URL must be
// configured; the token may be empty, in which case the prober reports
// not authenticated.
func buildEngine(db *store.DB, logger *log.Logger) (*sync.Orchestrator, *sync.Settings, error) {
	baseURL := viper.GetString("remote.url")
	if baseURL == "" {
		return nil, nil, fmt.Errorf("remote.url is not configured (set it in ~/.syncpad/config.yaml or SYNCPAD_REMOTE_URL)")
	}

	settings := sync.NewSettings(viper.GetBool("sync.enabled"), viper.GetString("remote.token"))
	client := remote.New(baseURL, settings.Token())
	prober := sync.NewProber(client, settings)

	collections := []sync.Collection{
		sync.NewTaskCollection(db.Tasks(), client, logger),
		sync.NewNoteCollection(db.Notes(), client, logger),
	}

	return sync.NewOrchestrator(settings, prober, collections, logger), settings, nil
}

// syncInterval returns the configured schedule interval.
func syncInterval() time.Duration {
	minutes := viper.GetInt("sync.interval_minutes")
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}
