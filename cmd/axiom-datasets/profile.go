package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	axiom "github.com/j-sauer/axiom-go"
)

// profile is a deployment configuration file.
type profile struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	OrgID string `yaml:"org_id"`
}

func loadProfile(path string) (profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return profile{}, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	var p profile
	if err := yaml.NewDecoder(f).Decode(&p); err != nil {
		return profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	return p, nil
}

// lookup returns an EnvLookup that falls back to the profile for variables
// env does not know.
func (p profile) lookup(env axiom.EnvLookup) axiom.EnvLookup {
	values := map[string]string{
		axiom.EnvURL:         p.URL,
		axiom.EnvAccessToken: p.Token,
		axiom.EnvOrgID:       p.OrgID,
	}
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v := values[key]
		return v, v != ""
	}
}
