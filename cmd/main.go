package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rafata1/retail-order-core/config"
)

const versionTimeFormat = "20060102150405"

var configPath string

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zlog.With().Str("service", "retail-order-core").Logger()

	rootCmd := &cobra.Command{Use: "retail-order-core"}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(
		createMigrationCommand(),
		migrateCommand(),
		seedCommand(),
		relayCommand(),
		watchEventsCommand(),
	)

	err := rootCmd.Execute()
	if err != nil {
		panic(err)
	}
}

func mustLoadConfig() config.Config {
	conf, err := config.Load(configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	return conf
}

func mustConnect(conf config.Config) *sqlx.DB {
	db, err := sqlx.Connect("mysql", conf.DatabaseDSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("connect database")
	}
	return db
}

func createMigrationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-create [name]",
		Short: "create sql migrations",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conf := mustLoadConfig()
			now := time.Now()
			version := now.Format(versionTimeFormat)
			name := args[0]
			up := fmt.Sprintf("%s/%s_%s.up.sql", conf.MigrationDir, version, name)
			down := fmt.Sprintf("%s/%s_%s.down.sql", conf.MigrationDir, version, name)

			err := os.WriteFile(up, []byte{}, 0644)
			if err != nil {
				panic(err)
			}

			err = os.WriteFile(down, []byte{}, 0644)
			if err != nil {
				panic(err)
			}

			fmt.Println("Created SQL up script:", up)
			fmt.Println("Created SQL down script:", down)
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "migrate all the way up",
		Run: func(cmd *cobra.Command, args []string) {
			conf := mustLoadConfig()
			m, err := migrate.New(
				fmt.Sprintf("file://%s", conf.MigrationDir),
				fmt.Sprintf("mysql://%s", conf.DatabaseDSN),
			)
			if err != nil {
				panic(err)
			}

			err = m.Up()
			if err == migrate.ErrNoChange {
				fmt.Println("No change in migration")
				return
			}
			if err != nil {
				panic(err)
			}
			fmt.Println("Migrated up")
		},
	}
}
