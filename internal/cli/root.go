package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/upload-folders/internal/config"
	"github.com/spf13/cobra"
)

type ctxKey string

const appCtxKey ctxKey = "app"

// NewRootCommand builds the folderctl command tree
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "folderctl",
		Short:         "folderctl lists, removes and syncs upload folders",
		Long:          `folderctl manages the folders of an upload bundle below a configured base path: it lists uploaded files, removes folders and mirrors a temporary upload folder into its final place.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// help needs no config
			if !cmd.HasParent() || cmd.Name() == "help" {
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			app, err := NewApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appCtxKey, app))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML), defaults to configs/config.yaml")

	rootCmd.AddCommand(ListCommand())
	rootCmd.AddCommand(RemoveCommand())
	rootCmd.AddCommand(SyncCommand())
	rootCmd.AddCommand(HistoryCommand())
	rootCmd.AddCommand(OptionCommand())

	return rootCmd
}

// GetApp returns the App built by the root command
func GetApp(cmd *cobra.Command) *App {
	if v := cmd.Context().Value(appCtxKey); v != nil {
		if app, ok := v.(*App); ok {
			return app
		}
	}
	return nil
}

// withApp runs fn with the command's App and closes the App afterwards,
// so metrics are exported for failed operations too
func withApp(fn func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		app := GetApp(cmd)
		if app == nil {
			return errors.New("application not initialized")
		}
		defer func() {
			err = errors.Join(err, app.Close())
		}()
		return fn(cmd, args, app)
	}
}
