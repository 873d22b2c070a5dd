package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/logging"
	"github.com/chukul/sessionctl/internal/session"
	"github.com/chukul/sessionctl/internal/workspace"
)

var (
	daemonInterval     time.Duration
	daemonRotateBefore time.Duration
	daemonMetricsAddr  string
)

const (
	daemonPIDFile = ".sessionctl/daemon.pid"
	daemonLogFile = ".sessionctl/daemon.log"
)

func daemonPath(rel string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, rel)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background credential rotation daemon",
	Long: `The daemon restarts active sessions shortly before their credentials expire,
so tools reading the credentials file never see expired keys.`,
	Annotations: map[string]string{skipWorkspace: "true"},
}

var daemonStartCmd = &cobra.Command{
	Use:         "start",
	Short:       "Run the rotation loop in the foreground",
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := daemonPath(daemonPIDFile)
		if _, err := os.Stat(pidPath); err == nil {
			fmt.Println("❌ Daemon is already running (or pid file exists).")
			fmt.Println("💡 Use 'sessionctl daemon stop' first if you want to restart.")
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logPath := daemonPath(daemonLogFile)
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			return err
		}
		a, err := openApp(&logging.Config{
			Level:       "info",
			Development: cfg.Log.Development,
			OutputPaths: []string{logPath},
		})
		if err != nil {
			return err
		}
		defer a.close()

		interval := cfg.Daemon.Interval
		if cmd.Flags().Changed("interval") {
			interval = daemonInterval
		}
		window := cfg.Daemon.RotateBefore
		if cmd.Flags().Changed("rotate-before") {
			window = daemonRotateBefore
		}
		addr := cfg.Daemon.MetricsAddr
		if cmd.Flags().Changed("metrics-addr") {
			addr = daemonMetricsAddr
		}
		if interval <= 0 {
			return fmt.Errorf("interval must be positive")
		}

		if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
			return fmt.Errorf("failed to write pid file: %w", err)
		}
		defer os.Remove(pidPath)

		ctx := ctxOf(cmd)
		fmt.Printf("🚀 Starting sessionctl daemon (interval %s, rotating %s before expiry)...\n", interval, window)
		fmt.Printf("📝 Logs: ~/%s\n", daemonLogFile)
		if addr != "" {
			fmt.Printf("📈 Metrics: http://%s/metrics\n", addr)
			stop := serveMetrics(ctx, a, addr)
			defer stop()
		}

		a.log.Info("daemon started", zap.Duration("interval", interval), zap.Duration("rotateBefore", window))
		runRotation(ctx, a.state, a.manager, a.metrics, a.log, interval, window)
		a.log.Info("daemon stopped")
		return nil
	},
}

// runRotation rotates expiring sessions on every tick until ctx is done.
// The workspace is reloaded first so changes made by other sessionctl
// processes are seen.
func runRotation(ctx context.Context, state *workspace.State, mgr *session.Manager, metrics *session.Metrics, log *zap.Logger, interval, window time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rotateOnce(ctx, state, mgr, metrics, log, window)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func rotateOnce(ctx context.Context, state *workspace.State, mgr *session.Manager, metrics *session.Metrics, log *zap.Logger, window time.Duration) {
	if err := state.Reload(); err != nil {
		log.Error("failed to reload workspace", zap.Error(err))
		return
	}
	rotated, err := mgr.RotateExpiring(ctx, window)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("rotation failed", zap.Error(err))
	}
	if len(rotated) > 0 {
		log.Info("rotated sessions", zap.Strings("sessionIds", rotated))
	}
	metrics.SetActive(state.Sessions())
}

func serveMetrics(ctx context.Context, a *app, addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

var daemonStopCmd = &cobra.Command{
	Use:         "stop",
	Short:       "Stop the background daemon",
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := daemonPath(daemonPIDFile)
		data, err := os.ReadFile(pidPath)
		if err != nil {
			fmt.Println("❌ Daemon is not running.")
			return nil
		}

		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			os.Remove(pidPath)
			return fmt.Errorf("invalid pid file: %w", err)
		}
		process, err := os.FindProcess(pid)
		if err != nil {
			os.Remove(pidPath)
			return fmt.Errorf("could not find process %d: %w", pid, err)
		}

		fmt.Printf("🛑 Stopping sessionctl daemon (PID: %d)...\n", pid)
		if err := process.Signal(os.Interrupt); err != nil {
			os.Remove(pidPath)
			return fmt.Errorf("failed to signal daemon: %w", err)
		}
		fmt.Println("✅ Daemon stopped.")
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Check daemon status",
	Annotations: map[string]string{skipWorkspace: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(daemonPath(daemonPIDFile))
		if err != nil {
			fmt.Println("⚪ Daemon is NOT running.")
			return
		}
		fmt.Printf("🟢 Daemon is running (PID: %s)\n", strings.TrimSpace(string(data)))
	},
}

var daemonLogsCmd = &cobra.Command{
	Use:         "logs",
	Short:       "View daemon logs",
	Annotations: map[string]string{skipWorkspace: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(daemonPath(daemonLogFile))
		if err != nil {
			fmt.Println("❌ No logs found.")
			return
		}
		fmt.Print(string(data))
	},
}

var daemonSetupCmd = &cobra.Command{
	Use:         "setup",
	Short:       "Start the daemon at login on macOS",
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if runtime.GOOS != "darwin" {
			fmt.Println("❌ Setup is only supported on macOS.")
			return nil
		}

		home, _ := os.UserHomeDir()
		execPath, err := os.Executable()
		if err != nil {
			return err
		}
		plistPath := filepath.Join(home, "Library/LaunchAgents/com.chukul.sessionctl.plist")

		plist := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.chukul.sessionctl</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>daemon</string>
        <string>start</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>%s/.sessionctl/daemon.stdout.log</string>
    <key>StandardErrorPath</key>
    <string>%s/.sessionctl/daemon.stderr.log</string>
</dict>
</plist>`, execPath, home, home)

		if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(plistPath, []byte(plist), 0644); err != nil {
			return fmt.Errorf("failed to create plist: %w", err)
		}

		fmt.Println("✅ LaunchAgent plist created.")
		fmt.Println("🚀 To enable, run:")
		fmt.Printf("   launchctl load %s\n", plistPath)
		return nil
	},
}

func init() {
	daemonStartCmd.Flags().DurationVarP(&daemonInterval, "interval", "i", time.Minute, "Check interval (default from config)")
	daemonStartCmd.Flags().DurationVar(&daemonRotateBefore, "rotate-before", 10*time.Minute, "Rotate sessions expiring within this window")
	daemonStartCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonLogsCmd, daemonSetupCmd)
	rootCmd.AddCommand(daemonCmd)
}
