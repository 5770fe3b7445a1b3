// Package cli implements the stagectl command line: listing catalog
// collections and staging reorders through the reorder coordinator.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"relocation/internal/config"
	"relocation/internal/reorder"
	"relocation/internal/stagestore"
)

const (
	keyAPIURL = "api-url"
	keyToken  = "token"
	keyLogDir = "log-dir"
	keyConfig = "config"

	maxLogFiles = 10
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	v       *viper.Viper
	logger  *slog.Logger
	logFile io.Closer
	client  *stagestore.Client
	coord   *reorder.Coordinator
}

// NewRootCommand builds the stagectl command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "stagectl",
		Short:         "Inspect and reorder the relocation stage catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String(keyAPIURL, "http://localhost:8080", "stage store base URL")
	flags.String(keyToken, "", "bearer token for mutating requests")
	flags.String(keyLogDir, "", "directory for log files (default is the user cache dir)")
	flags.StringP(keyConfig, "c", "", "config file (default is $HOME/.config/stagectl/config.yaml)")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newListCommand(a),
		newMoveCommand(a),
		newStepCommand(a, "up", -1),
		newStepCommand(a, "down", 1),
		newBoardCommand(a),
	)
	return root
}

// Execute runs stagectl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	_ = godotenv.Load()

	v := a.v
	v.SetEnvPrefix("STAGECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString(keyConfig); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/stagectl")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger, closer, err := openLog(v.GetString(keyLogDir))
	if err != nil {
		return err
	}
	a.logger, a.logFile = logger, closer

	a.client = stagestore.NewClient(v.GetString(keyAPIURL),
		stagestore.WithToken(v.GetString(keyToken)),
		stagestore.WithLogger(logger),
	)
	a.coord = reorder.NewCoordinator(a.client, logger)

	logger.Info("stagectl started", "command", cmd.CommandPath(), "api_url", v.GetString(keyAPIURL))
	return nil
}

func (a *app) close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

// openLog writes JSON logs to a timestamped file; the terminal belongs to the
// command output and the board.
func openLog(dir string) (*slog.Logger, io.Closer, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "stagectl", "logs")
	}
	f, err := config.SetupLogFile(dir, "stagectl", maxLogFiles)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), f, nil
}

// collectionFlags are shared by the commands addressing one collection.
type collectionFlags struct {
	family  string
	village string
	parent  string
}

func (f *collectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.family, "family", string(reorder.FamilyStages), "catalog family: stages, options or buildings")
	cmd.Flags().StringVar(&f.village, "village", "", "village id, required for buildings")
	cmd.Flags().StringVar(&f.parent, "parent", "", "parent id to address its children")
}

func (f *collectionFlags) key() (reorder.Key, error) {
	key := reorder.Key{Family: reorder.Family(f.family), Village: f.village, ParentID: f.parent}
	if err := key.Validate(); err != nil {
		return reorder.Key{}, err
	}
	return key, nil
}
