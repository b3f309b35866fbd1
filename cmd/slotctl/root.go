// Command slotctl computes, creates, inspects and stress-tests slot map regions.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var (
	logger  = newLogger(false)
	printer = message.NewPrinter(language.English)
)

var rootCmd = &cobra.Command{
	Use:   "slotctl",
	Short: "Work with generational slot map regions",
	Long: `slotctl computes region layouts, creates region images, validates their
invariants and drives randomized workloads against in-memory regions.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logs")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// num renders an integer with digit grouping, e.g. "12,345".
func num[T ~int | ~uint32 | ~uint64](n T) string {
	return printer.Sprintf("%d", n)
}

// bytesLabel renders a byte count with grouping, e.g. "12,345 bytes".
func bytesLabel(n int) string {
	return printer.Sprintf("%d bytes", n)
}
