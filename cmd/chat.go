package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"athenalens/internal/agent"
	"athenalens/internal/tui"
)

var flagChatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask about query costs interactively",
	Long: "Start an interactive conversation about your Athena query costs.\n" +
		"With ANTHROPIC_API_KEY set, questions are answered by Claude with\n" +
		"access to the analysis tools; without it, a keyword router still runs\n" +
		"the analyses for explicit date ranges.",
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&flagChatPlain, "plain", false, "Line-based REPL instead of the full-screen interface")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	chatAgent, _ := buildAgent(cfg, st)

	if flagChatPlain {
		return plainChat(cmd, chatAgent)
	}

	p := tea.NewProgram(tui.NewChat(chatAgent), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func plainChat(cmd *cobra.Command, chatAgent *agent.Agent) error {
	var history []agent.Turn
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Ask about query costs. Empty line or ctrl-d to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}

		reply, err := chatAgent.Chat(cmd.Context(), line, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply)
		fmt.Println()
		history = append(history,
			agent.Turn{Role: "user", Content: line},
			agent.Turn{Role: "assistant", Content: reply})
	}
	return scanner.Err()
}
