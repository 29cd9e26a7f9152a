package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tenancymigrator/src/database"
	"tenancymigrator/src/driver"
	"tenancymigrator/src/tenancy"
)

var Version string

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "tenancy-migrator"
	app.Usage = "schema & ownership migration for the strategy analysis platform database"
	app.Version = Version
	app.Before = func(_ *cli.Context) error {
		setupLogger()
		return nil
	}

	app.Commands = []cli.Command{
		migrateCMD,
		introspectCMD,
		checkCMD,
		reassignCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

var (
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "evolve the schema and reassign orphan rows",
		Action:      migrateAction,
		Description: `Run the full migration: locate the database, apply additive schema changes, reassign orphan rows to the configured target user and verify invariants.`,
	}
	introspectCMD = cli.Command{
		Name:        "introspect",
		Usage:       "print the live tables, columns and row counts",
		Action:      introspectAction,
		Description: `Read-only: report the actual shape of the live database.`,
	}
	checkCMD = cli.Command{
		Name:        "check",
		Usage:       "run the integrity prober only",
		Action:      checkAction,
		Description: `Read-only: run every structural and invariant check and print the report. Exits 2 when defects are found.`,
	}
	reassignCMD = cli.Command{
		Name:   "reassign",
		Usage:  "assign orphan rows to a user",
		Action: reassignAction,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "email",
				Usage: "email of the active user that receives orphan rows",
			},
		},
		Description: `Run the locator and the orphan reassigner only.`,
	}
)

func migrateAction(_ *cli.Context) error {
	logger.Info("Starting migrate CMD")

	m := driver.New(database.GetConfig())
	if _, err := m.Migrate(context.Background()); err != nil {
		logger.WithError(err).Error("migration failed")
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	return nil
}

func introspectAction(_ *cli.Context) error {
	logger.Info("Starting introspect CMD")

	m := driver.New(database.GetConfig())
	if err := m.Introspect(context.Background()); err != nil {
		logger.WithError(err).Error("introspection failed")
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	return nil
}

func checkAction(_ *cli.Context) error {
	logger.Info("Starting check CMD")

	m := driver.New(database.GetConfig())
	if _, err := m.Check(context.Background()); err != nil {
		logger.WithError(err).Error("check found defects")
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	return nil
}

func reassignAction(c *cli.Context) error {
	email := c.String("email")
	if email == "" {
		email = database.GetConfig().MigrationTargetEmail
	}
	if email == "" {
		return cli.NewExitError("reassign requires --email or MIGRATION_TARGET_EMAIL", 3)
	}

	logger.WithField("email", email).Info("Starting reassign CMD")

	m := driver.New(database.GetConfig())
	if _, err := m.Reassign(context.Background(), email); err != nil {
		logger.WithError(err).Error("reassignment failed")
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	return nil
}

// exitCode maps the error taxonomy to the documented exit codes:
// 1 schema evolution failed, 2 invariants violated, 3 target user
// invalid, 4 database unreachable.
func exitCode(err error) int {
	var invariant *driver.InvariantError
	switch {
	case errors.Is(err, database.ErrUnreachable):
		return 4
	case errors.Is(err, tenancy.ErrTargetUserMissing):
		return 3
	case errors.As(err, &invariant):
		return 2
	default:
		return 1
	}
}
