// Package setup implements "devdash init": it writes a config file and the
// data directories for a per-user or per-machine layout.
package setup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/Guliveer/devdash/internal/config"
)

// ErrConfigExists is returned when a config file is present and Force is unset.
var ErrConfigExists = errors.New("config file already exists")

// Options holds the flags passed to init.
type Options struct {
	Mode           string // "system", "user", or "" (prompt)
	ManifestURL    string
	DownloadURL    string
	ArchiveBackend string // file, sqlite, none or "" (prompt)
	InstallBinary  bool
	Force          bool
	NonInteractive bool
}

// Run executes the init wizard. Missing values are prompted for unless
// NonInteractive is set, in which case defaults apply.
func Run(version string, opts Options, out io.Writer) error {
	fmt.Fprintf(out, "\ndevdash init %s\n\n", version)

	if opts.NonInteractive {
		if opts.Mode == "" {
			opts.Mode = ModeUser.String()
		}
	} else if err := prompt(&opts); err != nil {
		return err
	}

	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	if err := CheckElevation(mode); err != nil {
		return err
	}

	paths := ResolvePaths(mode)
	if _, err := os.Stat(paths.ConfigPath); err == nil && !opts.Force {
		if opts.NonInteractive {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, paths.ConfigPath)
		}
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", paths.ConfigPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		opts.Force = true
	}

	if err := Apply(paths, opts, out); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nDone! Run devdash to open the dashboard.")
	return nil
}

func prompt(opts *Options) error {
	var fields []huh.Field
	if opts.Mode == "" {
		opts.Mode = ModeUser.String()
		fields = append(fields, huh.NewSelect[string]().
			Title("Setup mode").
			Options(
				huh.NewOption("User (current user only)", ModeUser.String()),
				huh.NewOption("System (all users, needs admin rights)", ModeSystem.String()),
			).
			Value(&opts.Mode))
	}
	if opts.ArchiveBackend == "" {
		opts.ArchiveBackend = "file"
		fields = append(fields, huh.NewSelect[string]().
			Title("Finished job archive").
			Options(
				huh.NewOption("JSON files", "file"),
				huh.NewOption("SQLite database", "sqlite"),
				huh.NewOption("Off", "none"),
			).
			Value(&opts.ArchiveBackend))
	}
	if opts.ManifestURL == "" {
		fields = append(fields, huh.NewInput().
			Title("Manifest URL (optional)").
			Description("Endpoint returning installer manifests; {id} is replaced by the package id").
			Placeholder("leave empty to use the download URL template").
			Value(&opts.ManifestURL).
			Validate(func(s string) error {
				if s == "" {
					return nil
				}
				return config.ValidateURL("manifest URL", s)
			}))
	}
	if len(fields) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// Apply creates the directories and config file described by paths.
func Apply(paths Paths, opts Options, out io.Writer) error {
	if _, err := os.Stat(paths.ConfigPath); err == nil && !opts.Force {
		return fmt.Errorf("%w: %s", ErrConfigExists, paths.ConfigPath)
	}

	dirs := []string{filepath.Dir(paths.ConfigPath), paths.DataDir, paths.DownloadDir, paths.ArchiveDir}
	if opts.InstallBinary {
		dirs = append(dirs, paths.BinDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		fmt.Fprintf(out, "  ✓ Created %s\n", dir)
	}

	if opts.InstallBinary {
		copied, err := copyBinary(paths.BinPath)
		if err != nil {
			return fmt.Errorf("copying binary: %w", err)
		}
		if copied {
			fmt.Fprintf(out, "  ✓ Copied binary → %s\n", paths.BinPath)
		} else {
			fmt.Fprintln(out, "  (binary already in place)")
		}
	}

	cfg := config.DefaultConfig()
	cfg.Installer.DownloadDir = paths.DownloadDir
	cfg.Archive.Path = paths.ArchiveDir
	cfg.Logging.File = paths.LogFile
	if opts.ArchiveBackend != "" {
		cfg.Archive.Backend = opts.ArchiveBackend
	}
	if opts.ManifestURL != "" {
		cfg.Catalog.ManifestURL = opts.ManifestURL
	}
	if opts.DownloadURL != "" {
		cfg.Catalog.DownloadURL = opts.DownloadURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.WriteConfig(cfg, paths.ConfigPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Written config → %s\n", paths.ConfigPath)
	return nil
}

// copyBinary copies the current executable to dst. It reports false when
// the executable already is dst.
func copyBinary(dst string) (bool, error) {
	src, err := os.Executable()
	if err != nil {
		return false, err
	}
	if src, err = filepath.Abs(filepath.Clean(src)); err != nil {
		return false, err
	}
	if dst, err = filepath.Abs(filepath.Clean(dst)); err != nil {
		return false, err
	}
	if src == dst {
		return false, nil
	}
	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return false, err
	}
	return true, out.Close()
}
