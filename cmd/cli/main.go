package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bookfinder/internal/config"
	"bookfinder/internal/logger"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/search"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	cfgPath string
	debug   bool

	cfg config.Config
	log *logrus.Logger
	svc *search.Service
	out io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookfinder",
		Short:         "Search the Open Library catalog from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $"+config.EnvPath+" or ./"+config.DefaultPath+")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newSearchCmd(a),
		newShellCmd(a),
		newWorkCmd(a),
		newDiagnoseCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Path(a.cfgPath))
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := "warn"
	if a.debug || cfg.CLI.Debug {
		level = "debug"
	}
	if _, err := logger.Setup(logger.Options{Level: level}); err != nil {
		return err
	}
	logrus.SetOutput(cmd.ErrOrStderr())
	a.log = logrus.StandardLogger()
	a.out = cmd.OutOrStdout()
	if a.svc == nil {
		a.svc = search.NewService(openlibrary.New(cfg.OpenLibrary, a.log), cfg.Search.PageSize)
	}
	return nil
}

func main() {
	ctx := logger.ContextWithID(context.Background(), logger.NewID())
	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
