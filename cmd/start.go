package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/ui"
	"github.com/chukul/sessionctl/internal/workspace"
)

var startCmd = &cobra.Command{
	Use:   "start [session]",
	Short: "Start a session and write its credentials",
	Long: `Start acquires fresh credentials for the session and applies them: AWS
sessions write their named profile in the credentials file, Azure sessions
log the az CLI into the tenant. Sessions sharing the same slot are stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.find(argOr(args), func(s workspace.Session) bool {
			return s.Status != workspace.StatusActive
		})
		if err != nil {
			return err
		}
		return startSession(ctxOf(cmd), sess, current.manager.Start)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [session]",
	Short: "Stop a session and remove its credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.find(argOr(args), func(s workspace.Session) bool {
			return s.Status == workspace.StatusActive
		})
		if err != nil {
			return err
		}
		if err := current.manager.Stop(ctxOf(cmd), sess.ID); err != nil {
			return err
		}
		fmt.Printf("🛑 Session '%s' stopped\n", sess.Name)
		return nil
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch [session]",
	Short: "Toggle a session: stop it when active, start it otherwise",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.find(argOr(args), nil)
		if err != nil {
			return err
		}
		if sess.Status == workspace.StatusActive {
			if err := current.manager.Toggle(ctxOf(cmd), sess.ID); err != nil {
				return err
			}
			fmt.Printf("🛑 Session '%s' stopped\n", sess.Name)
			return nil
		}
		return startSession(ctxOf(cmd), sess, current.manager.Toggle)
	},
}

// startSession runs start under a spinner. The spinner owns the terminal
// while it runs, so an MFA code the start needs is read before it begins.
func startSession(ctx context.Context, sess workspace.Session, start func(ctx context.Context, id string) error) error {
	err := promptMFA(sess)
	if err == nil {
		err = ui.Spin(ctx, fmt.Sprintf("Starting %s...", sess.Name), func(ctx context.Context) error {
			return start(ctx, sess.ID)
		})
	}
	if cancelled(err) {
		fmt.Printf("⚪ Start of '%s' cancelled\n", sess.Name)
		return nil
	}
	if err != nil {
		return err
	}
	printStarted(sess.ID)
	return nil
}

func promptMFA(sess workspace.Session) error {
	src, ok := current.manager.MFASource(sess.ID)
	if !ok {
		return nil
	}
	return current.prompter.Prompt(src)
}

func printStarted(id string) {
	s, ok := current.state.Session(id)
	if !ok {
		return
	}
	fmt.Printf("✅ Session '%s' is active in %s\n", s.Name, s.Region)
	if s.Expiration != nil {
		fmt.Printf("   Expires: %s\n", s.Expiration.Local().Format("2006-01-02 15:04:05"))
	}
	if s.Type.IsAWS() {
		profile, err := current.state.ProfileName(s.ProfileID)
		if err == nil {
			fmt.Printf("   Profile: %s (%s)\n", profile, current.creds.Path())
		}
	}
}

func argOr(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func init() {
	rootCmd.AddCommand(startCmd, stopCmd, switchCmd)
}
