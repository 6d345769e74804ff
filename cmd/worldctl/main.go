// Command worldctl inspects Hinterland saves offline and talks to a running
// worldsim.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/talgya/hinterland/internal/client"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
)

type options struct {
	api      string
	adminKey string
	timeout  time.Duration
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "worldctl",
		Short:         "Inspect and drive a Hinterland world",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.api, "api", envOrDefault("HINTERLAND_API_URL", "http://localhost:8080"), "worldsim API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.adminKey, "admin-key", os.Getenv("HINTERLAND_ADMIN_KEY"), "bearer token for admin calls")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(
		statusCmd(opts),
		villagesCmd(opts),
		reportsCmd(opts),
		missionsCmd(opts),
		buildCmd(opts),
		trainCmd(opts),
		speedCmd(opts),
		saveCmd(opts),
		exportCmd(),
		importCmd(),
		inspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		failColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (o *options) client() *client.Client {
	c := client.New(o.api, o.adminKey)
	c.HTTPClient.Timeout = o.timeout
	return c
}

func (o *options) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.timeout)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func heading(format string, args ...any) {
	fmt.Println()
	titleColor.Printf(format+"\n", args...)
}
