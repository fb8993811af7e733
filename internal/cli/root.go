package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"resume-roaster/internal/roast"
	"resume-roaster/internal/shared/telemetry"
)

const (
	app = "roaster"

	ModeProxy  = "proxy"
	ModeDirect = "direct"
)

// Config is the CLI configuration read from roaster.yaml, ROASTER_* variables
// and flags.
type Config struct {
	Mode     string        `mapstructure:"mode"`
	ProxyURL string        `mapstructure:"proxy-url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	KeyFile  string        `mapstructure:"key-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "roaster turns a résumé into a brutally honest roast",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogging(viper.GetString("log-file"), viper.GetBool("json"), viper.GetBool("debug"))
		},
	}
)

// Execute executes the root command.
func Execute() error {
	defer func() { _ = telemetry.Sync() }()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is roaster.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a rotating file instead of stderr")
	rootCmd.PersistentFlags().String("mode", ModeProxy, "how to reach the model: proxy or direct")
	rootCmd.PersistentFlags().String("proxy-url", "http://localhost:8080", "base URL of the roast proxy")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("proxy-url", rootCmd.PersistentFlags().Lookup("proxy-url"))

	viper.SetDefault("model", roast.DefaultModel)
	viper.SetDefault("timeout", roast.DefaultTimeout)
	viper.SetEnvPrefix("ROASTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional; flags and ROASTER_* variables are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			telemetry.Warn("config.read_failed", map[string]any{"error": err.Error()})
		}
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Mode = strings.ToLower(strings.TrimSpace(config.Mode))
	switch config.Mode {
	case "":
		config.Mode = ModeProxy
	case ModeProxy, ModeDirect:
	default:
		return nil, fmt.Errorf("unknown mode %q (want %s or %s)", config.Mode, ModeProxy, ModeDirect)
	}
	if config.Timeout <= 0 {
		config.Timeout = roast.DefaultTimeout
	}
	return &config, nil
}

// configureLogging sends logs to stderr, or to a size-rotated JSON file when
// path is set so the terminal stays clean for prompts.
func configureLogging(path string, json, debug bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		telemetry.Configure(os.Stderr, telemetry.Options{JSON: json, Debug: debug})
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	telemetry.Configure(rotator, telemetry.Options{JSON: true, Debug: debug})
}
