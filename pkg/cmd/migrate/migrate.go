package migrate

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/cmd/util"
	"github.com/mpapenbr/checkpoint-racer/pkg/config"
	"github.com/mpapenbr/checkpoint-racer/pkg/storage/postgres"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils"
)

var disableSSL bool

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs the migrations of the postgres storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(os.Stderr)
			return startMigration(cmd)
		},
	}
	cmd.Flags().BoolVar(&disableSSL, "disable-ssl", true,
		"adds sslmode=disable to the database url if no sslmode is given")
	return cmd
}

func startMigration(cmd *cobra.Command) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if postgresAddr == "" {
		return fmt.Errorf("not a postgres url: %s", config.DB)
	}
	if err = utils.WaitForTCP(cmd.Context(), postgresAddr, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	dbURL := config.DB
	if disableSSL {
		dbURL = prepareURLForDB(dbURL)
	}
	log.Info("Migrating database", log.String("addr", postgresAddr))
	if err := postgres.MigrateDB(dbURL); err != nil {
		return err
	}
	log.Info("Database is up to date")
	return nil
}

func prepareURLForDB(url string) string {
	if strings.Contains(url, "sslmode=") {
		return url
	}
	options := "sslmode=disable"
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
