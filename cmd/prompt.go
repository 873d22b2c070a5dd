package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/workspace"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the active session of the current profile for a shell prompt",
	Long: `Print the session active on $AWS_PROFILE (or the default profile) with the
time it has left. Prints nothing when no session is active.`,
	Run: func(cmd *cobra.Command, args []string) {
		s, ok := promptSession()
		if !ok {
			return
		}
		if s.Expiration == nil {
			fmt.Printf("☁️  %s", s.Name)
			return
		}
		left := time.Until(*s.Expiration)
		if left <= 0 {
			fmt.Printf("☁️  %s (expired)", s.Name)
			return
		}
		h, m := int(left.Hours()), int(left.Minutes())%60
		if h > 0 {
			fmt.Printf("☁️  %s (%dh%dm)", s.Name, h, m)
		} else {
			fmt.Printf("☁️  %s (%dm)", s.Name, m)
		}
	},
}

var promptInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the active session of the current profile as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		s, ok := promptSession()
		if !ok {
			fmt.Println("{}")
			return
		}
		info := map[string]any{
			"session": s.Name,
			"type":    s.Type,
			"region":  s.Region,
			"roleArn": s.RoleArn(),
		}
		if s.Expiration != nil {
			left := time.Until(*s.Expiration)
			info["expiration"] = s.Expiration.Format(time.RFC3339)
			info["remaining"] = int(left.Seconds())
			info["expired"] = left <= 0
		}
		out, _ := json.Marshal(info)
		fmt.Println(string(out))
	},
}

// promptSession returns the active AWS session writing to the current
// profile.
func promptSession() (workspace.Session, bool) {
	profile := os.Getenv("AWS_PROFILE")
	if profile == "" {
		profile = workspace.DefaultProfileName
	}
	ws, err := current.state.Workspace()
	if err != nil {
		return workspace.Session{}, false
	}
	for _, s := range ws.Sessions {
		if s.Status != workspace.StatusActive || !s.Type.IsAWS() {
			continue
		}
		name := workspace.DefaultProfileName
		if p, ok := ws.FindProfile(s.ProfileID); ok {
			name = p.Name
		}
		if name == profile {
			return s, true
		}
	}
	return workspace.Session{}, false
}

func init() {
	promptCmd.AddCommand(promptInfoCmd)
	rootCmd.AddCommand(promptCmd)
}
