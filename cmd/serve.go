package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"athenalens/internal/agent"
	"athenalens/internal/api"
	"athenalens/internal/config"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (defaults to config)")
	rootCmd.AddCommand(serveCmd)
}

// buildAgent wires the chat agent over the given record source. The client
// is nil without an API key; the agent then falls back to keyword routing.
func buildAgent(cfg config.Config, source agent.RecordSource) (*agent.Agent, *agent.Toolset) {
	tools := agent.NewToolset(source, analysisOptions(cfg), "")
	client := agent.NewAnthropicClient(
		config.GetAnthropicAPIKey(cfg), cfg.Anthropic.Model, cfg.Anthropic.BaseURL)
	return agent.New(tools, client), tools
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	chatAgent, tools := buildAgent(cfg, st)
	srv := api.NewServer(st, tools, chatAgent)

	listen := cfg.Server.Listen
	if flagListen != "" {
		listen = flagListen
	}

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Listening on http://%s\n", listen)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
