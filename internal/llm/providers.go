package llm

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var defaultProviders []byte

// Provider describes how to drive one web chat page.
type Provider struct {
	Name                  string `yaml:"-"`
	URL                   string `yaml:"url"`
	InputSelector         string `yaml:"inputSelector"`
	ButtonSelector        string `yaml:"buttonSelector"`
	ConfirmButtonSelector string `yaml:"confirmButtonSelector"`
	ResultSelector        string `yaml:"resultSelector"`
}

// Validate checks that every required field is set.
func (p Provider) Validate() error {
	var errs []error
	if p.URL == "" {
		errs = append(errs, errors.New("url is required"))
	}
	if p.InputSelector == "" {
		errs = append(errs, errors.New("inputSelector is required"))
	}
	if p.ButtonSelector == "" {
		errs = append(errs, errors.New("buttonSelector is required"))
	}
	if p.ResultSelector == "" {
		errs = append(errs, errors.New("resultSelector is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("provider %q: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

// LoadProviders returns the built-in presets, with fields from the YAML file
// at path (when set) layered on top.
func LoadProviders(path string) (map[string]Provider, error) {
	providers, err := parseProviders(defaultProviders)
	if err != nil {
		return nil, fmt.Errorf("parse built-in providers: %w", err)
	}
	if path == "" {
		return providers, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	overrides, err := parseProviders(data)
	if err != nil {
		return nil, fmt.Errorf("parse providers file %s: %w", path, err)
	}
	for name, o := range overrides {
		providers[name] = merge(providers[name], o)
	}
	return providers, nil
}

func parseProviders(data []byte) (map[string]Provider, error) {
	raw := make(map[string]Provider)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for name, p := range raw {
		p.Name = name
		raw[name] = p
	}
	return raw, nil
}

func merge(base, o Provider) Provider {
	base.Name = o.Name
	if o.URL != "" {
		base.URL = o.URL
	}
	if o.InputSelector != "" {
		base.InputSelector = o.InputSelector
	}
	if o.ButtonSelector != "" {
		base.ButtonSelector = o.ButtonSelector
	}
	if o.ConfirmButtonSelector != "" {
		base.ConfirmButtonSelector = o.ConfirmButtonSelector
	}
	if o.ResultSelector != "" {
		base.ResultSelector = o.ResultSelector
	}
	return base
}
