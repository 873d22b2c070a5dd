package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

var (
	ssoPortalURL string
	ssoRegion    string
)

var ssoCmd = &cobra.Command{
	Use:   "sso",
	Short: "Configure AWS IAM Identity Center",
	Long: `sessionctl reads the portal token that 'aws sso login' caches. Configure the
portal once, log in with the AWS CLI, then start SSO role sessions.`,
}

var ssoConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set the SSO portal URL and region",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ssoPortalURL == "" || ssoRegion == "" {
			return fmt.Errorf("--portal-url and --region are required")
		}

		var expiration *time.Time
		tok, err := current.sso.Token(ssoPortalURL)
		switch {
		case err == nil:
			exp := tok.ExpiresAt.UTC()
			expiration = &exp
		case errors.Is(err, awscloud.ErrNoSSOToken):
		default:
			return err
		}

		if err := current.state.ConfigureAWSSSO(ssoRegion, ssoPortalURL, expiration); err != nil {
			return err
		}
		fmt.Printf("✅ AWS SSO configured for %s (%s)\n", ssoPortalURL, ssoRegion)
		if expiration == nil {
			fmt.Println("💡 No cached login found. Run:")
			fmt.Printf("   aws sso login --sso-session <name>   # portal %s\n", ssoPortalURL)
			fmt.Println("   sessionctl sso configure ...        # again to pick up the token")
		} else {
			fmt.Printf("   Login valid until %s\n", expiration.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var ssoLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Stop all SSO sessions and forget the login expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		stopped := 0
		for _, s := range current.state.Sessions() {
			if s.Type != workspace.TypeAWSSSORole || s.Status == workspace.StatusInactive {
				continue
			}
			if err := current.manager.Stop(ctxOf(cmd), s.ID); err != nil {
				return err
			}
			stopped++
		}
		if err := current.state.ClearAWSSSOExpiration(); err != nil {
			return err
		}
		fmt.Printf("✅ Logged out of AWS SSO (%d session(s) stopped)\n", stopped)
		return nil
	},
}

var ssoShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the SSO configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := current.state.AWSSSOConfiguration()
		if err != nil {
			return err
		}
		if cfg.PortalURL == "" {
			fmt.Println("⚪ AWS SSO is not configured.")
			fmt.Println("\n💡 Configure it with:")
			fmt.Println("   sessionctl sso configure --portal-url <url> --region <region>")
			return nil
		}
		fmt.Printf("Portal:  %s\n", cfg.PortalURL)
		fmt.Printf("Region:  %s\n", cfg.Region)
		switch {
		case cfg.ExpirationTime == nil:
			fmt.Println("Login:   not logged in")
		case cfg.ExpirationTime.Before(time.Now()):
			fmt.Println("Login:   expired")
		default:
			fmt.Printf("Login:   %s\n", remaining(cfg.ExpirationTime, time.Now()))
		}
		return nil
	},
}

func init() {
	ssoConfigureCmd.Flags().StringVar(&ssoPortalURL, "portal-url", "", "SSO start URL, e.g. https://my-org.awsapps.com/start")
	ssoConfigureCmd.Flags().StringVar(&ssoRegion, "region", "", "Region of the IAM Identity Center instance")
	ssoCmd.AddCommand(ssoConfigureCmd, ssoLogoutCmd, ssoShowCmd)
	rootCmd.AddCommand(ssoCmd)
}
