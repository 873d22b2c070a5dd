package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var idpCmd = &cobra.Command{
	Use:   "idp",
	Short: "Manage SAML identity provider URLs",
}

var idpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identity provider URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, err := current.state.IdpURLs()
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			fmt.Println("📭 No identity provider URLs found.")
			fmt.Println("\n💡 Add one with:")
			fmt.Println("   sessionctl idp add <url>")
			return nil
		}
		fmt.Println("Identity providers")
		fmt.Println(strings.Repeat("─", 80))
		for _, u := range urls {
			fmt.Printf("%-38s %s\n", u.ID, u.URL)
		}
		return nil
	},
}

var idpAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add an identity provider URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ensureIdpURL(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✅ Identity provider %s stored as %s\n", args[0], id)
		return nil
	},
}

func init() {
	idpCmd.AddCommand(idpListCmd, idpAddCmd)
	rootCmd.AddCommand(idpCmd)
}
