package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/zfsutils/scrubwatch/internal/log"
	"github.com/zfsutils/scrubwatch/internal/model"
	"github.com/zfsutils/scrubwatch/internal/service"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	userConfigPath string // /default/config/path/scrubwatch on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config
	closeLog       func() error

	flagConfigFilePath    string
	flagVerbose           bool
	flagPool              string
	flagEvery             string
	flagTelegramToken     string
	flagTelegramChats     []string
	flagAllowUnprivileged bool
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "scrubwatch")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is scrubwatch.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagPool, "pool", "", "pool to scrub - default is the first discovered pool")
	rootCmd.PersistentFlags().StringVar(&flagEvery, "every", "", "minimal interval between scrubs: day, week, 2weeks or month")
	rootCmd.PersistentFlags().StringVar(&flagTelegramToken, "telegram-token", "", "Telegram bot token for notifications")
	rootCmd.PersistentFlags().StringSliceVar(&flagTelegramChats, "telegram-chat", nil, "Telegram chat id to notify, repeatable")
	rootCmd.PersistentFlags().BoolVar(&flagAllowUnprivileged, "allow-unprivileged", false, "do not require root privileges")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initScrubwatch

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	if closeLog != nil {
		_ = closeLog()
	}
	if err != nil {
		slog.Error("scrubwatch failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "scrubwatch",
	Short:        "Tool starting and supervising zpool scrubs",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run command executes one gated scrub cycle and exits",
	RunE:  doRun,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "watch command stays resident and runs a gated cycle per schedule tick",
	RunE:  doWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides version of a scrubwatch",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("scrubwatch: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:     %s\n", configPath)
		}
		fmt.Printf("scrubwatch: %s\n", info.Main.Version)
		fmt.Printf("go:         %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:     %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:       %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:      %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attrs := slog.Group("scrubwatch",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	if err := requirePrivileges(); err != nil {
		return err
	}

	svc, err := service.New(config)
	if err != nil {
		return err
	}
	return svc.RunOnce(ctx)
}

func doWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attrs := slog.Group("scrubwatch",
		slog.String("cmd", "watch"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	if err := requirePrivileges(); err != nil {
		return err
	}

	svc, err := service.New(config)
	if err != nil {
		return err
	}
	return svc.Watch(ctx)
}

func initScrubwatch(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("SCRUBWATCHCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "scrubwatch.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "scrubwatch.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		err = enc.Encode(config)
		if err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// flags have a precedence over the config file
	if flagVerbose {
		config.Verbose = true
	}
	if flagPool != "" {
		config.Pool = flagPool
	}
	if flagEvery != "" {
		config.Every = flagEvery
	}
	if flagTelegramToken != "" || len(flagTelegramChats) != 0 {
		if config.Telegram == nil {
			config.Telegram = &model.Telegram{}
		}
		if flagTelegramToken != "" {
			config.Telegram.Token = flagTelegramToken
		}
		if len(flagTelegramChats) != 0 {
			config.Telegram.ChatIDs = flagTelegramChats
		}
	}
	if err := config.Validate(); err != nil {
		return err
	}

	// initialize logging
	logger, closeFn, err := log.New(config.Verbose, config.Log)
	if err != nil {
		return err
	}
	closeLog = closeFn
	slog.SetDefault(logger)

	slog.Debug("scrubwatch run", "configPath", configPath)
	slog.Debug("scrubwatch run", "config", config)
	return nil
}

// requirePrivileges refuses to run unprivileged, as zpool scrub needs
// root on most systems. Overridable for setups with delegated
// permissions.
func requirePrivileges() error {
	if flagAllowUnprivileged {
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("root privileges are required to scrub, pass --allow-unprivileged to skip this check")
	}
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
