// Package catalog holds the installable package list, resolves packages to
// download manifests and detects what is already installed.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed packages.yaml
var defaultPackages []byte

// ErrUnknownPackage is returned for ids that are not in the catalog.
var ErrUnknownPackage = errors.New("unknown package")

// Package is one installable application.
type Package struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
	// DownloadID is the id used in the download URL; defaults to ID.
	DownloadID string `yaml:"download_id,omitempty" json:"download_id,omitempty"`
	// Registry keys are relative to HKLM and HKCU.
	Registry []string `yaml:"registry,omitempty" json:"registry,omitempty"`
	// Paths may contain %USERNAME% and * globs.
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`
}

func (p Package) downloadID() string {
	if p.DownloadID != "" {
		return p.DownloadID
	}
	return p.ID
}

// Catalog is an immutable, ordered package list.
type Catalog struct {
	packages []Package
	byID     map[string]int
}

type catalogFile struct {
	Packages []Package `yaml:"packages"`
}

// Parse reads a catalog from YAML. Ids must be unique and non-empty.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]int, len(f.Packages))}
	for _, p := range f.Packages {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", p.ID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		if p.Category == "" {
			p.Category = "Other"
		}
		c.byID[p.ID] = len(c.packages)
		c.packages = append(c.packages, p)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultPackages)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Load returns the catalog in path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Get looks up a package by id.
func (c *Catalog) Get(id string) (Package, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Package{}, false
	}
	return c.packages[i], true
}

// Packages returns every package in catalog order.
func (c *Catalog) Packages() []Package {
	out := make([]Package, len(c.packages))
	copy(out, c.packages)
	return out
}

// Categories returns the distinct categories in first-seen order, with
// "Other" last.
func (c *Catalog) Categories() []string {
	seen := make(map[string]int)
	var out []string
	for _, p := range c.packages {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = len(out)
			out = append(out, p.Category)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i] != "Other" && out[j] == "Other"
	})
	return out
}

// ByCategory returns the packages of one category in catalog order.
func (c *Catalog) ByCategory(category string) []Package {
	var out []Package
	for _, p := range c.packages {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
