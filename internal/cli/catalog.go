package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/catalog"
	"github.com/Guliveer/devdash/internal/platform"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List installable tools and whether they are installed",
	Long: `List the package catalog grouped by category, with the detected install
state of each package.

Examples:
  devdash catalog
  devdash catalog --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return catalogCommand(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
}

func catalogCommand(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	installed := catalog.NewDetector(cat, platform.New(), zap.NewNop()).Scan()

	if catalogJSON {
		type entry struct {
			catalog.Package
			Installed bool `json:"installed"`
		}
		entries := make([]entry, 0, len(cat.Packages()))
		for _, p := range cat.Packages() {
			entries = append(entries, entry{Package: p, Installed: installed[p.ID]})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	_, err = fmt.Fprintln(out, renderCatalog(cat, installed))
	return err
}

// renderCatalog formats the catalog as a table in category order.
func renderCatalog(cat *catalog.Catalog, installed map[string]bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "CATEGORY", "INSTALLED")
	for _, c := range cat.Categories() {
		for _, p := range cat.ByCategory(c) {
			state := "no"
			if installed[p.ID] {
				state = "yes"
			}
			t.Row(p.ID, p.Name, p.Category, state)
		}
	}
	return t.String()
}
