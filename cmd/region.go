package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var regionCmd = &cobra.Command{
	Use:   "region <session> <region>",
	Short: "Change the region of a session, restarting it when active",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.manager.Find(args[0])
		if err != nil {
			return err
		}
		err = current.manager.ChangeRegion(ctxOf(cmd), sess.ID, args[1])
		if reportRestart(err) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("✅ Session '%s' now uses region %s\n", sess.Name, args[1])
		return nil
	},
}

// reportRestart prints a saved-but-not-restarted change. It returns false
// for any other error.
func reportRestart(err error) bool {
	var restartErr *session.RestartError
	if !errors.As(err, &restartErr) {
		return false
	}
	fmt.Println("⚠️  Change saved, but the session could not be restarted:")
	fmt.Printf("   %v\n", restartErr.Err)
	fmt.Println("💡 Start it again with: sessionctl start", restartErr.SessionID)
	return true
}

func init() {
	rootCmd.AddCommand(regionCmd)
}
