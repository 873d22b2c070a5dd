package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
	"github.com/chukul/sessionctl/internal/workspace"
)

var (
	editName    string
	editRoleArn string
)

var editCmd = &cobra.Command{
	Use:   "edit <session>",
	Short: "Rename a session or change its role ARN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.manager.Find(args[0])
		if err != nil {
			return err
		}

		var patch session.Patch
		if cmd.Flags().Changed("name") {
			patch.Name = &editName
		}
		if cmd.Flags().Changed("role-arn") {
			patch.RoleArn = &editRoleArn
		}
		if patch == (session.Patch{}) {
			return fmt.Errorf("nothing to change, pass --name or --role-arn")
		}

		updated, err := current.manager.Update(sess.ID, patch)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Session '%s' updated\n", updated.Name)
		if patch.RoleArn != nil && sess.Status == workspace.StatusActive {
			fmt.Println("💡 The new role applies the next time the session starts.")
		}
		return nil
	},
}

func init() {
	editCmd.Flags().StringVar(&editName, "name", "", "New session name")
	editCmd.Flags().StringVar(&editRoleArn, "role-arn", "", "New role ARN (federated and chained roles)")
	rootCmd.AddCommand(editCmd)
}
