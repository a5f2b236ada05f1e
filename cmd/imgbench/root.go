package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/imgbench/pkg/imgbench/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "imgbench [roots...]",
		Short: "Benchmark image decoding safely",
		Long: `imgbench measures how fast this machine decodes images.

It classifies the host into a performance tier, picks a small set of local
images that are safe to load on that tier, decodes them under a time budget
and reports a performance profile. Cloud placeholders are never opened.

By default, imgbench shows live progress while it runs.
Use --no-interactive or -o to get plain report output.

Examples:
  imgbench                     # Search ./assets, then the working directory
  imgbench ~/Pictures          # Benchmark images from a specific directory
  imgbench -o json .           # JSON report
  imgbench --tier low          # Force the low tier limits
  imgbench tier                # Show host signals and tier
  imgbench index ~/Pictures    # Pre-warm the probe cache
  imgbench history             # List saved profiles`,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: initializeLogging,
		RunE:              runBenchmark,
		SilenceUsage:      true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/imgbench/config.yaml)")
	rootCmd.PersistentFlags().StringP("tier", "t", "", "force a tier (low, moderate, good, high, excellent, auto)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the probe cache")
	rootCmd.PersistentFlags().Bool("no-calibrate", false, "skip the calibration probe")

	// Bind flags to viper
	_ = viper.BindPFlag("tier", rootCmd.PersistentFlags().Lookup("tier"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	_ = viper.BindPFlag("no_calibrate", rootCmd.PersistentFlags().Lookup("no-calibrate"))

	registerRunFlags(rootCmd)
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	config.AddConfigPaths(v)
	config.SetDefaults(v)

	if err := config.ReadInConfig(v); err != nil {
		printError("%v", err)
	}
}

// loadConfig decodes the global viper state, including bound flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if viper.GetBool("no_cache") {
		cfg.Cache.Enabled = false
	}
	if viper.GetBool("no_calibrate") {
		cfg.Calibrate = false
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
