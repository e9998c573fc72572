package cli

import (
	"github.com/spf13/cobra"

	"github.com/Guliveer/devdash/internal/setup"
)

var initOpts setup.Options

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file and create the data directories",
	Long: `Create a devdash config file and the download, archive and log
directories, for the current user or for the whole machine.

Missing values are prompted for unless --non-interactive is given.

Examples:
  devdash init
  devdash init --mode user --archive sqlite
  sudo devdash init --mode system --install-binary --non-interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOpts
		if opts.ManifestURL == "" {
			opts.ManifestURL = manifestURLFlag
		}
		if opts.ArchiveBackend == "" {
			opts.ArchiveBackend = archiveFlag
		}
		return setup.Run(version, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	f := initCmd.Flags()
	f.StringVar(&initOpts.Mode, "mode", "", "setup mode: user or system")
	f.StringVar(&initOpts.DownloadURL, "download-url", "", "installer URL template; {id} is replaced by the download id")
	f.BoolVar(&initOpts.InstallBinary, "install-binary", false, "copy this executable into the mode's bin directory")
	f.BoolVar(&initOpts.Force, "force", false, "overwrite an existing config file")
	f.BoolVar(&initOpts.NonInteractive, "non-interactive", false, "never prompt; use defaults for missing values")
}
