package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/ui"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <session>",
	Aliases: []string{"rm"},
	Short:   "Delete a session together with the sessions chained from it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.manager.Find(args[0])
		if err != nil {
			return err
		}
		plan, err := current.manager.DeletePlan(sess.ID)
		if err != nil {
			return err
		}

		if !deleteYes {
			if len(plan.Trusters) > 0 {
				fmt.Printf("⚠️  %s\n", plan.Message)
				for _, name := range plan.TrusterNames() {
					fmt.Printf("   • %s\n", name)
				}
			}
			ok, err := ui.Confirm(fmt.Sprintf("Delete %s?", sess.Name))
			if cancelled(err) || (err == nil && !ok) {
				fmt.Println("⚪ Nothing deleted.")
				return nil
			}
			if err != nil {
				return err
			}
		}

		if err := current.manager.Delete(ctxOf(cmd), sess.ID); err != nil {
			return err
		}
		fmt.Printf("🗑️  Deleted '%s'", sess.Name)
		if n := len(plan.Trusters); n > 0 {
			fmt.Printf(" and %d dependent session(s)", n)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
