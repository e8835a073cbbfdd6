package axiom

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/j-sauer/axiom-go/model"
)

// CloudURL is the url of the Axiom cloud deployment.
const CloudURL = "https://api.axiom.co"

// Environment variables the configuration falls back to.
const (
	EnvURL         = "AXIOM_URL"
	EnvAccessToken = "AXIOM_TOKEN"
	EnvOrgID       = "AXIOM_ORG_ID"
)

// Configuration errors returned by NewClient.
var (
	ErrMissingAccessToken    = errors.New("axiom: missing access token")
	ErrInvalidToken          = errors.New("axiom: invalid access token")
	ErrMissingOrganizationID = errors.New("axiom: missing organization id")
	ErrInvalidURL            = errors.New("axiom: invalid url")
)

// EnvLookup looks up a configuration value by environment variable name.
type EnvLookup func(key string) (string, bool)

// LoadEnvFile returns an EnvLookup that reads the given dotenv files (".env"
// if none are given). Variables of the process environment take precedence
// over the files.
func LoadEnvFile(filenames ...string) (EnvLookup, error) {
	values, err := godotenv.Read(filenames...)
	if err != nil {
		return nil, fmt.Errorf("axiom: read env file: %w", err)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

type config struct {
	url         string
	accessToken string
	orgID       string
}

// resolveConfig applies the precedence explicit option > environment >
// default to url, token and organization id and validates the result.
func resolveConfig(options ClientOptions) (config, error) {
	env := options.Env
	if env == nil {
		env = os.LookupEnv
	}

	cfg := config{
		url:         resolve(options.URL, env, EnvURL),
		accessToken: resolve(options.AccessToken, env, EnvAccessToken),
		orgID:       resolve(options.OrgID, env, EnvOrgID),
	}
	cfg.url = strings.TrimSuffix(cfg.url, "/")
	if cfg.url == "" {
		cfg.url = CloudURL
	}
	u, err := url.Parse(cfg.url)
	if err != nil {
		return config{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return config{}, fmt.Errorf("%w: %q needs an http or https scheme and a host", ErrInvalidURL, cfg.url)
	}

	if cfg.accessToken == "" {
		return config{}, ErrMissingAccessToken
	}
	if !model.IsValidToken(cfg.accessToken) {
		return config{}, fmt.Errorf("%w: must start with %q, %q or %q", ErrInvalidToken,
			model.APITokenPrefix, model.IngestTokenPrefix, model.PersonalTokenPrefix)
	}
	if cfg.orgID == "" && cfg.url == CloudURL && model.IsPersonalToken(cfg.accessToken) {
		return config{}, fmt.Errorf("%w: personal tokens need an organization id on %s", ErrMissingOrganizationID, CloudURL)
	}
	return cfg, nil
}

func resolve(explicit string, env EnvLookup, key string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := env(key); ok {
		return v
	}
	return ""
}
