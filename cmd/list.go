package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/workspace"
)

var (
	listJSON bool
	listType string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "status"},
	Short:   "Show all sessions with status, region, profile and remaining time",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions := current.state.Sessions()
		if listType != "" {
			filtered := sessions[:0]
			for _, s := range sessions {
				if strings.EqualFold(string(s.Type), listType) {
					filtered = append(filtered, s)
				}
			}
			sessions = filtered
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(redacted(sessions))
		}

		if len(sessions) == 0 {
			fmt.Println("📭 No sessions found.")
			fmt.Println("\n💡 Create one with:")
			fmt.Println("   sessionctl add federated <name> --role-arn <arn> --idp-arn <arn> --idp-url <url>")
			return nil
		}

		ws, err := current.state.Workspace()
		if err != nil {
			return err
		}
		printSessionTable(os.Stdout, ws, sessions, time.Now())
		return nil
	},
}

func printSessionTable(w io.Writer, ws *workspace.Workspace, sessions []workspace.Session, now time.Time) {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%-10s %-24s %-20s %-16s %-12s %-14s %s\n",
		header("ID"), header("NAME"), header("TYPE"), header("REGION"), header("PROFILE"), header("EXPIRES"), header("STATUS"))
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for _, s := range sessions {
		profile := "-"
		if s.Type.IsAWS() {
			profile = workspace.DefaultProfileName
			if p, ok := ws.FindProfile(s.ProfileID); ok {
				profile = p.Name
			}
		}
		fmt.Fprintf(w, "%-10s %-24s %-20s %-16s %-12s %-14s %s\n",
			truncateText(s.ID, 8),
			truncateText(s.Name, 24),
			typeLabel(s.Type),
			s.Region,
			truncateText(profile, 12),
			remaining(s.Expiration, now),
			statusColor(s.Status)(strings.ToUpper(string(s.Status))),
		)
	}
}

func statusColor(s workspace.Status) func(a ...any) string {
	switch s {
	case workspace.StatusActive:
		return color.New(color.FgGreen).SprintFunc()
	case workspace.StatusPending:
		return color.New(color.FgYellow).SprintFunc()
	}
	return color.New(color.Faint).SprintFunc()
}

// redacted drops long-term secrets before sessions leave the process.
func redacted(sessions []workspace.Session) []workspace.Session {
	out := workspace.CloneSessions(sessions)
	for i := range out {
		if out[i].IAMUser != nil {
			out[i].IAMUser.SecretAccessKey = ""
		}
	}
	return out
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output sessions as JSON for automation")
	listCmd.Flags().StringVar(&listType, "type", "", "Only show sessions of this type (e.g. awsIamRoleFederated, azure)")
	rootCmd.AddCommand(listCmd)
}
