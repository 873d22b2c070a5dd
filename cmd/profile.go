package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/workspace"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage named credential profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles and the sessions bound to them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := current.state.Workspace()
		if err != nil {
			return err
		}

		bound := make(map[string][]string)
		for _, s := range ws.Sessions {
			if !s.Type.IsAWS() {
				continue
			}
			name := workspace.DefaultProfileName
			if p, ok := ws.FindProfile(s.ProfileID); ok {
				name = p.Name
			}
			bound[name] = append(bound[name], s.Name)
		}

		fmt.Println("Profiles")
		fmt.Println(strings.Repeat("─", 80))
		for _, p := range ws.Profiles {
			fmt.Printf("%-20s %s\n", p.Name, strings.Join(bound[p.Name], ", "))
		}
		return nil
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.state.AddProfile(workspace.NewProfile(args[0])); err != nil {
			return err
		}
		fmt.Printf("✅ Profile '%s' added\n", args[0])
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <session> <profile>",
	Short: "Bind an AWS session to a profile, restarting it when active",
	Long:  "Bind an AWS session to a named profile. The profile is created when it does not exist.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.manager.Find(args[0])
		if err != nil {
			return err
		}
		err = current.manager.ChangeProfile(ctxOf(cmd), sess.ID, args[1])
		if reportRestart(err) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("✅ Session '%s' now writes to profile '%s'\n", sess.Name, args[1])
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileAddCmd, profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
