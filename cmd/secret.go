package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/secret"
	"github.com/chukul/sessionctl/internal/ui"
)

var secretCmd = &cobra.Command{
	Use:         "secret",
	Short:       "Manage the workspace encryption secret",
	Long:        `Manage the secret that encrypts your sessionctl workspace.`,
	Annotations: map[string]string{skipWorkspace: "true"},
}

var secretShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the keychain secret",
	Long:        "Reveal the secret stored in your macOS Keychain. The system may ask you to authenticate.",
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := secret.Show()
		if errors.Is(err, secret.ErrUnsupported) {
			fmt.Println("❌ Keychain integration is only available on macOS")
			return nil
		}
		if err != nil {
			fmt.Println("❌ No secret found in Keychain or it couldn't be accessed.")
			return nil
		}

		fmt.Println("🔐 Your sessionctl encryption secret:")
		fmt.Println(strings.Repeat("─", 64))
		fmt.Println(s)
		fmt.Println(strings.Repeat("─", 64))
		fmt.Println("\n⚠️  KEEP THIS SAFE! You will need it to open your workspace on another machine.")
		fmt.Println("   To restore: sessionctl secret import <key>")
		return nil
	},
}

var secretImportCmd = &cobra.Command{
	Use:         "import [key]",
	Short:       "Import a secret into the keychain",
	Long:        "Save an existing secret into your macOS Keychain so commands run without --secret.",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !secret.KeychainSupported() {
			fmt.Println("❌ Keychain integration is only available on macOS")
			return nil
		}

		key := argOr(args)
		if key == "" {
			var err error
			key, err = ui.GetInput("Enter secret to import", "", true)
			if cancelled(err) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		if key == "" {
			return fmt.Errorf("secret cannot be empty")
		}

		if err := secret.StoreKeychainSecret(key); err != nil {
			return fmt.Errorf("failed to store secret: %w", err)
		}
		fmt.Println("✅ Secret imported successfully to Keychain!")
		return nil
	},
}

var secretSetupCmd = &cobra.Command{
	Use:         "setup",
	Short:       "Generate a new secret and store it in the keychain",
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !secret.KeychainSupported() {
			s, err := secret.Generate()
			if err != nil {
				return err
			}
			fmt.Println("⚠️  No keychain on this platform. Keep this secret and export it:")
			fmt.Printf("   export %s=%s\n", secret.EnvVar, s)
			return nil
		}
		if _, err := secret.Show(); err == nil {
			fmt.Println("⚪ A secret is already stored in the Keychain.")
			fmt.Println("💡 Use 'sessionctl secret show' to reveal it.")
			return nil
		}
		if _, err := secret.Setup(); err != nil {
			return fmt.Errorf("failed to set up secret: %w", err)
		}
		fmt.Println("✅ New secret generated and stored in the Keychain.")
		fmt.Println("💡 Back it up with: sessionctl secret show")
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretShowCmd, secretImportCmd, secretSetupCmd)
	rootCmd.AddCommand(secretCmd)
}
