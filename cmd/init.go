package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Generate shell integration code",
	Long:        `Generate shell integration code to simplify sessionctl usage. Add the output to your shell config file.`,
	Annotations: map[string]string{skipWorkspace: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		shell := detectShell(os.Getenv("SHELL"))

		fmt.Printf("# sessionctl shell integration for %s\n", shell)
		fmt.Println("# Add this to your shell config file:")
		fmt.Println("# - Bash: ~/.bashrc or ~/.bash_profile")
		fmt.Println("# - Zsh: ~/.zshrc")
		fmt.Println("# - Fish: ~/.config/fish/config.fish")
		fmt.Println()

		if shell == "fish" {
			fmt.Println(fishIntegration)
			return
		}
		fmt.Println(posixIntegration)
	},
}

func detectShell(shell string) string {
	if shell == "" {
		if runtime.GOOS == "windows" {
			return "powershell"
		}
		return "bash"
	}
	return filepath.Base(shell)
}

const posixIntegration = `# Environment credentials for one shell - usage: sce <session>
sce() {
  eval "$(sessionctl export "$@")"
}

# Show the active session in the prompt (optional)
sessionctl_prompt() {
  sessionctl prompt 2>/dev/null
}

# Add to your PS1 (Bash) or PROMPT (Zsh):
# PS1='$(sessionctl_prompt) \u@\h:\w\$ '
# PROMPT='$(sessionctl_prompt) %n@%m:%~%# '

alias scl='sessionctl list'
alias scs='sessionctl switch'
alias scc='sessionctl console'`

const fishIntegration = `# Environment credentials for one shell - usage: sce <session>
function sce
    sessionctl export $argv | source
end

# Show the active session in the prompt (optional)
function fish_prompt
    set_color green
    sessionctl prompt 2>/dev/null
    set_color normal
    echo -n ' '
    set_color blue
    echo -n (whoami)@(hostname):(prompt_pwd)
    set_color normal
    echo -n '> '
end

alias scl='sessionctl list'
alias scs='sessionctl switch'
alias scc='sessionctl console'`

func init() {
	rootCmd.AddCommand(initCmd)
}
