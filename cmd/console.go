package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

var (
	consoleOpen   bool
	consoleRegion string
)

var consoleCmd = &cobra.Command{
	Use:   "console [session]",
	Short: "Generate an AWS console sign-in URL for a role session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.find(argOr(args), func(s workspace.Session) bool {
			return s.Type.IsAWS() && s.Type != workspace.TypeAWSIAMUser
		})
		if err != nil {
			return err
		}
		if sess.Type == workspace.TypeAWSIAMUser {
			fmt.Println("❌ IAM user sessions cannot be used for console federation.")
			fmt.Println("💡 Chain a role from it first:")
			fmt.Printf("   sessionctl add chained <name> --parent %s --role-arn <role-arn>\n", sess.Name)
			return nil
		}

		creds, err := current.manager.GenerateCredentials(ctxOf(cmd), sess.ID)
		if err != nil {
			return err
		}

		region := consoleRegion
		if region == "" {
			region = sess.Region
		}
		fmt.Println("🔐 Getting sign-in token...")
		url, err := awscloud.NewConsole("").SigninURL(ctxOf(cmd), creds, region)
		if err != nil {
			return err
		}

		fmt.Printf("\n✅ Console URL generated for '%s'\n", sess.Name)
		fmt.Printf("   Role: %s\n", sess.RoleArn())
		if !creds.Expiration.IsZero() {
			fmt.Printf("   Expires: %s\n\n", creds.Expiration.Local().Format("2006-01-02 15:04:05"))
		}

		if consoleOpen {
			fmt.Println("🌐 Opening AWS Console in browser...")
			if err := openBrowser(url); err != nil {
				fmt.Printf("❌ Failed to open browser: %v\n", err)
				fmt.Printf("\nPlease open this URL manually:\n%s\n", url)
			}
			return nil
		}
		fmt.Printf("Console URL:\n%s\n", url)
		return nil
	},
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleOpen, "open", false, "Open the URL in the browser")
	consoleCmd.Flags().StringVar(&consoleRegion, "region", "", "Console region (defaults to the session's region)")
	rootCmd.AddCommand(consoleCmd)
}
