// Package commands implements the grantdash command line.
package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"grant-dashboard/config"
	"grant-dashboard/dashboard"
	"grant-dashboard/database"
	"grant-dashboard/identity"
	"grant-dashboard/remote"
)

// options is shared by every subcommand. cfg, log and ident are ready once
// the root PersistentPreRunE has run.
type options struct {
	verbose bool
	v       *viper.Viper
	cfg     config.Config
	log     *zap.Logger
	ident   *identity.Provider
}

func New() *cobra.Command {
	o := &options{v: viper.New(), log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "grantdash",
		Short: "Browse, filter and track public grants.",
		Long: `grantdash is a client for the grants service. It serves a dashboard API
that keeps filters, favorites and alerts in sync with the service, and runs
one-off queries from the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = o.log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging.")
	flags.String("api-url", "", "Grants service API root.")
	flags.String("data-dir", "", "Directory for the local database and client id.")
	flags.String("locale", "", "Locale for sorting and number formatting.")
	_ = o.v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = o.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = o.v.BindPFlag("locale", flags.Lookup("locale"))

	addCommands(cmd, o)
	return cmd
}

func addCommands(topLevel *cobra.Command, o *options) {
	addServe(topLevel, o)
	addGrants(topLevel, o)
	addFavorites(topLevel, o)
	addAlerts(topLevel, o)
	addOverview(topLevel, o)
	addWhoami(topLevel, o)
	addVersion(topLevel)
}

// Execute runs the root command.
func Execute() error {
	return New().Execute()
}

func (o *options) init() error {
	zc := zap.NewProductionConfig()
	if o.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.log = log

	cfg, err := config.Load(o.v)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.ident = identity.New(cfg.IdentityDir())
	o.log.Debug("Configuration loaded",
		zap.String("file", cfg.File),
		zap.String("api_url", cfg.APIURL),
		zap.String("data_dir", cfg.DataDir),
	)
	return nil
}

func (o *options) client() *remote.Client {
	return remote.New(o.cfg.APIURL, o.ident,
		remote.WithHTTPClient(&http.Client{Timeout: o.cfg.HTTPTimeout}),
		remote.WithLogger(o.log.Named("remote")),
	)
}

// openMirror opens the local database holding the favorites mirror. The
// returned close func releases it.
func (o *options) openMirror() (*database.FavoriteMirror, func(), error) {
	clientID, err := o.ident.ID()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(o.cfg.DatabasePath(), o.log.Named("database"))
	if err != nil {
		return nil, nil, err
	}
	return database.NewFavoriteMirror(db, clientID), func() { closeDB(o.log, db) }, nil
}

func closeDB(log *zap.Logger, db *gorm.DB) {
	if err := database.Close(db); err != nil {
		log.Warn("Closing database", zap.Error(err))
	}
}

// session builds and mounts a dashboard session. A partial mount is logged
// and the session is still returned.
func (o *options) session(ctx context.Context) (*dashboard.Session, func(), error) {
	mirror, closeMirror, err := o.openMirror()
	if err != nil {
		return nil, nil, err
	}
	s := dashboard.New(o.client(), mirror, o.cfg.Session(), o.log.Named("dashboard"))
	if err := s.Mount(ctx); err != nil {
		o.log.Warn("Dashboard started without all data", zap.Error(err))
	}
	return s, func() {
		s.Close()
		closeMirror()
	}, nil
}
