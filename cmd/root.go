package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/version"
)

var (
	secretFlag string
	configFlag string
)

func printLogo() {
	// Blue -> purple -> pink, like the rest of the CLI's accents.
	ascii := []string{
		`  ___  ___  ___ ___(_) ___  _ __   ___| |_| |`,
		` / __|/ _ \/ __/ __| |/ _ \| '_ \ / __| __| |`,
		` \__ \  __/\__ \__ \ | (_) | | | | (__| |_| |`,
		` |___/\___||___/___/_|\___/|_| |_|\___|\__|_|`,
	}

	fmt.Println()
	for _, line := range ascii {
		for i, char := range line {
			ratio := float64(i) / float64(len(line))

			var r, g, b int
			if ratio < 0.5 {
				sub := ratio * 2
				r = int(170 * sub)
				g = int(176 * (1 - sub))
				b = 255
			} else {
				sub := (ratio - 0.5) * 2
				r = int(170*(1-sub) + 255*sub)
				g = 0
				b = int(255*(1-sub) + 128*sub)
			}

			fmt.Printf("\x1b[38;2;%d;%d;%dm%c\x1b[0m", r, g, b, char)
		}
		fmt.Println()
	}
	fmt.Println("\x1b[1m  Manage AWS and Azure sessions from one encrypted workspace\x1b[0m")
	fmt.Println()
}

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "sessionctl manages AWS and Azure cloud sessions",
	Long: `sessionctl keeps your AWS IAM users, federated and chained roles, SSO roles
and Azure subscriptions in an encrypted workspace, and starts or stops them
by writing short-lived credentials where your tools expect them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		checkForUpdates(cmd)
		if !needsWorkspace(cmd) {
			return nil
		}
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		current.close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&secretFlag, "secret", "", "Workspace encryption secret (or set SESSIONCTL_SECRET, or use the keychain)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.sessionctl/config.yaml)")
}

func needsWorkspace(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion":
			return false
		}
	}
	return cmd.Annotations[skipWorkspace] != "true"
}

// checkForUpdates looks for a newer release at most once a day and reports
// it on stderr without delaying the command.
func checkForUpdates(cmd *cobra.Command) {
	if os.Getenv("SESSIONCTL_NO_UPDATE_CHECK") != "" || cmd.Name() == "version" {
		return
	}
	checker := version.NewChecker(version.ReleasesURL, version.DefaultCachePath())
	if !checker.ShouldCheck() {
		return
	}
	go func() {
		rel, err := checker.Latest(context.Background())
		if err != nil {
			return
		}
		if version.IsNewer(rel.TagName, version.Current) {
			fmt.Fprintf(os.Stderr, "\n💡 Update available: %s → %s\n", version.Current, rel.TagName)
			fmt.Fprintf(os.Stderr, "   Download: %s\n\n", rel.HTMLURL)
		}
		_ = checker.Remember(rel.TagName)
	}()
}

// Execute runs the CLI.
func Execute() {
	if len(os.Args) <= 1 || os.Args[1] == "help" {
		printLogo()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}
