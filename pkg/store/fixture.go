package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

//go:embed demo.toml
var demoFixture string

// Fixture is a page model in TOML form, used to seed a store.
type Fixture struct {
	Pages      []pagemodel.Page      `toml:"page"`
	Components []pagemodel.Component `toml:"component"`
	Toolkits   []ToolkitFixture      `toml:"toolkit"`
	Parameters []ParametersFixture   `toml:"parameters"`
	Documents  []DocumentsFixture    `toml:"documents"`
}

// ToolkitFixture lists the components of a toolkit.
type ToolkitFixture struct {
	ID    string   `toml:"id"`
	Items []string `toml:"items"`
}

// ParametersFixture holds the properties of one component.
type ParametersFixture struct {
	Component  string               `toml:"component"`
	Properties []pagemodel.Property `toml:"property"`
}

// DocumentsFixture holds the document paths of one type within a site.
type DocumentsFixture struct {
	Site  string   `toml:"site"`
	Type  string   `toml:"type"`
	Paths []string `toml:"paths"`
}

// ParseFixture decodes a TOML fixture. Unknown keys are an error.
func ParseFixture(data string) (*Fixture, error) {
	var fx Fixture
	md, err := toml.Decode(data, &fx)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse fixture: unknown key %s", undecoded[0])
	}
	return &fx, nil
}

// LoadFixture reads a TOML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	var fx Fixture
	md, err := toml.DecodeFile(path, &fx)
	if err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load fixture %s: unknown key %s", path, undecoded[0])
	}
	return &fx, nil
}

// DemoFixture returns the built-in demo site.
func DemoFixture() *Fixture {
	fx, err := ParseFixture(demoFixture)
	if err != nil {
		panic(err)
	}
	return fx
}

// Seed writes every record of fx to the repository.
func (r *Repository) Seed(ctx context.Context, fx *Fixture) error {
	for _, c := range fx.Components {
		if err := r.PutComponent(ctx, c); err != nil {
			return err
		}
	}
	for _, p := range fx.Pages {
		if err := r.PutPage(ctx, p); err != nil {
			return err
		}
	}
	for _, tk := range fx.Toolkits {
		if err := r.PutToolkit(ctx, tk.ID, tk.Items); err != nil {
			return err
		}
	}
	for _, p := range fx.Parameters {
		if err := r.PutParameters(ctx, p.Component, p.Properties); err != nil {
			return err
		}
	}
	for _, d := range fx.Documents {
		if err := r.PutDocuments(ctx, d.Site, d.Type, d.Paths); err != nil {
			return err
		}
	}
	r.logger.Info("store seeded", "pages", len(fx.Pages), "components", len(fx.Components))
	return nil
}
