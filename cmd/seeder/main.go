// seeder loads the demo data set into the database, or wipes it.
//
//	seeder --import [--data ./data]
//	seeder --delete
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iliyamo/bootcamp-directory/internal/config"
	"github.com/iliyamo/bootcamp-directory/internal/database"
	"github.com/iliyamo/bootcamp-directory/internal/logging"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var doImport, doDelete bool
	var dataDir string

	flagSet := pflag.NewFlagSet("seeder", pflag.ContinueOnError)
	flagSet.BoolVarP(&doImport, "import", "i", false, "import the data set")
	flagSet.BoolVarP(&doDelete, "delete", "d", false, "delete every user, bootcamp, course and review")
	flagSet.StringVar(&dataDir, "data", "data", "directory holding the YAML seed files")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stderr, "Usage: seeder (--import | --delete) [--data DIR]")
		flagSet.PrintDefaults()
		return nil
	}
	if doImport == doDelete {
		return errors.New("exactly one of --import or --delete is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.IsProduction())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DB.User, Pass: cfg.DB.Pass, Host: cfg.DB.Host, Port: cfg.DB.Port, Name: cfg.DB.Name,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	if doDelete {
		if err := seed.Delete(ctx, db); err != nil {
			return err
		}
		logger.Info("data destroyed")
		return nil
	}

	data, err := seed.Load(os.DirFS(dataDir))
	if err != nil {
		return err
	}
	stores := seed.Stores{
		Users:     repository.NewUserRepo(db),
		Bootcamps: repository.NewBootcampRepo(db),
		Courses:   repository.NewCourseRepo(db),
		Reviews:   repository.NewReviewRepo(db),
	}
	if err := seed.Import(ctx, stores, data, cfg.Auth.BcryptCost, logger); err != nil {
		return err
	}
	logger.Info("seed complete", slog.String("dir", dataDir))
	return nil
}
