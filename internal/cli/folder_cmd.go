package cli

import (
	"fmt"

	"github.com/garyjia/upload-folders/internal/storage"
	"github.com/spf13/cobra"
)

type ListCommandOpts struct {
	FullPath    bool
	NoOriginals bool
	All         bool
	FilesOnly   bool
}

type SyncCommandOpts struct {
	Create          bool
	RemoveFrom      bool
	RemoveOriginals bool
	Override        bool
	Delete          bool
	OriginalsFolder string
}

func ListCommand() *cobra.Command {
	opts := &ListCommandOpts{}
	cmd := &cobra.Command{
		Use:     "list <folder>",
		Short:   "List the files of a folder, by default its originals subfolder",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			override := &storage.Overrides{Folder: storage.String(args[0])}
			if cmd.Flags().Changed("full-path") {
				override.FullPath = storage.Bool(opts.FullPath)
			}
			if cmd.Flags().Changed("all") {
				override.IgnoreDotFiles = storage.Bool(!opts.All)
				override.IgnoreVCS = storage.Bool(!opts.All)
			}
			if cmd.Flags().Changed("files-only") {
				override.FilesOnly = storage.Bool(opts.FilesOnly)
			}

			files, err := app.Manager.ListFiles(override, !opts.NoOriginals)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, file := range files {
				fmt.Fprintln(out, file)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&opts.FullPath, "full-path", false, "Print resolved absolute paths instead of names")
	cmd.Flags().BoolVar(&opts.NoOriginals, "no-originals", false, "List the folder itself instead of its originals subfolder")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Include dot-files and VCS directories")
	cmd.Flags().BoolVar(&opts.FilesOnly, "files-only", false, "Skip directories")

	return cmd
}

func RemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <folder>",
		Short:   "Remove a folder and everything below it",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			if err := app.Manager.RemoveFolder(&storage.Overrides{Folder: storage.String(args[0])}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		}),
	}
	return cmd
}

func SyncCommand() *cobra.Command {
	opts := &SyncCommandOpts{}
	cmd := &cobra.Command{
		Use:   "sync <from-folder> <to-folder>",
		Short: "Mirror one folder into another",
		Long:  "Mirror from-folder into to-folder. Flags left unset fall back to the storage section of the config.",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			override := &storage.Overrides{
				FromFolder: storage.String(args[0]),
				ToFolder:   storage.String(args[1]),
			}
			flags := cmd.Flags()
			if flags.Changed("create") {
				override.CreateToFolder = storage.Bool(opts.Create)
			}
			if flags.Changed("remove-from") {
				override.RemoveFromFolder = storage.Bool(opts.RemoveFrom)
			}
			if flags.Changed("remove-originals") {
				override.RemoveOriginalFolder = storage.Bool(opts.RemoveOriginals)
			}
			if flags.Changed("override") {
				override.Override = storage.Bool(opts.Override)
			}
			if flags.Changed("delete") {
				override.Delete = storage.Bool(opts.Delete)
			}
			if flags.Changed("originals-folder") {
				override.Originals = &storage.OriginalsOverrides{Folder: storage.String(opts.OriginalsFolder)}
			}

			result, err := app.Manager.SyncFolders(override)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.SourceMissing {
				fmt.Fprintf(out, "nothing to sync, %s does not exist\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "synced %s -> %s: %d copied, %d skipped, %d deleted\n",
				args[0], args[1],
				result.Mirror.FilesCopied, result.Mirror.FilesSkipped, result.Mirror.EntriesDeleted)
			if result.RemovedFrom {
				fmt.Fprintf(out, "removed %s\n", args[0])
			}
			if result.RemovedOriginals {
				fmt.Fprintf(out, "removed originals of %s\n", args[1])
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&opts.Create, "create", false, "Create to-folder when missing")
	cmd.Flags().BoolVar(&opts.RemoveFrom, "remove-from", false, "Remove from-folder after syncing")
	cmd.Flags().BoolVar(&opts.RemoveOriginals, "remove-originals", false, "Remove the originals subfolder of to-folder after syncing")
	cmd.Flags().BoolVar(&opts.Override, "override", false, "Copy files even when the target is newer")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "Delete target entries missing from from-folder")
	cmd.Flags().StringVar(&opts.OriginalsFolder, "originals-folder", "", "Name of the originals subfolder")

	return cmd
}

func OptionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "option <name>",
		Short: "Print a configured storage option, e.g. originals.folder",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			value, ok := app.Manager.Option(args[0])
			if !ok {
				return fmt.Errorf("unknown option %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		}),
	}
}
