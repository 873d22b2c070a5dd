package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/awscloud"
)

var exportCmd = &cobra.Command{
	Use:   "export [session]",
	Short: "Print shell exports with fresh credentials for an AWS session",
	Long:  `Generate credentials without changing the session's status and print them as shell exports.`,
	Example: `  eval $(sessionctl export prod-admin)`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.find(argOr(args), isAWS)
		if err != nil {
			return err
		}
		creds, err := current.manager.GenerateCredentials(ctxOf(cmd), sess.ID)
		if err != nil {
			return err
		}
		writeExports(os.Stdout, creds, sess.Region)
		return nil
	},
}

func writeExports(w io.Writer, creds awscloud.Credentials, region string) {
	fmt.Fprintf(w, "export AWS_ACCESS_KEY_ID=%s\n", creds.AccessKeyID)
	fmt.Fprintf(w, "export AWS_SECRET_ACCESS_KEY=%s\n", creds.SecretAccessKey)
	if creds.SessionToken != "" {
		fmt.Fprintf(w, "export AWS_SESSION_TOKEN=%s\n", creds.SessionToken)
	}
	if region != "" {
		fmt.Fprintf(w, "export AWS_REGION=%s\n", region)
		fmt.Fprintf(w, "export AWS_DEFAULT_REGION=%s\n", region)
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
