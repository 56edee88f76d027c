package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"athenalens/internal/config"
	"athenalens/internal/store"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	driver := cfg.Database.Driver
	pgHost := cfg.Database.Host
	pgPort := strconv.Itoa(cfg.Database.Port)
	pgDB := cfg.Database.Database
	pgUser := cfg.Database.User
	pgPassword := cfg.Database.Password
	region := cfg.AWS.Region
	apiKey := cfg.Anthropic.APIKey

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database backend").
				Description("SQLite needs no setup; PostgreSQL suits shared deployments.").
				Options(
					huh.NewOption("SQLite (local file)", store.DriverSQLite),
					huh.NewOption("PostgreSQL", store.DriverPostgres),
				).
				Value(&driver),
		),
		huh.NewGroup(
			huh.NewInput().Title("PostgreSQL host").Value(&pgHost),
			huh.NewInput().Title("Port").Value(&pgPort).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)
					return err
				}),
			huh.NewInput().Title("Database").Value(&pgDB),
			huh.NewInput().Title("User").Value(&pgUser),
			huh.NewInput().Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&pgPassword),
		).WithHideFunc(func() bool { return driver != store.DriverPostgres }),
		huh.NewGroup(
			huh.NewInput().
				Title("AWS region").
				Description("Region whose Athena workgroups to fetch.").
				Value(&region),
			huh.NewInput().
				Title("Anthropic API key").
				Description("Optional; enables the conversational assistant. Leave blank to skip.").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Database.Driver = driver
	if driver == store.DriverPostgres {
		cfg.Database.Host = pgHost
		if port, err := strconv.Atoi(pgPort); err == nil {
			cfg.Database.Port = port
		}
		cfg.Database.Database = pgDB
		cfg.Database.User = pgUser
		cfg.Database.Password = pgPassword
	}
	cfg.AWS.Region = region
	cfg.Anthropic.APIKey = apiKey

	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", config.ConfigPath())
	return nil
}
