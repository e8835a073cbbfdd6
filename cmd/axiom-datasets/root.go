package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	axiom "github.com/j-sauer/axiom-go"
	"github.com/j-sauer/axiom-go/model"
)

type rootFlags struct {
	url        string
	token      string
	orgID      string
	configFile string
	envFile    string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
}

func newRootCommand(out io.Writer) *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "axiom-datasets",
		Short:         "manage Axiom datasets",
		Long:          "axiom-datasets creates, inspects, trims and ingests into Axiom datasets",
		Version:       model.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if flags.verbose {
				flags.logger, err = zap.NewDevelopment()
			} else {
				flags.logger, err = zap.NewProduction()
			}
			return err
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = flags.logger.Sync() //nolint:errcheck //stderr sync fails on some terminals
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.url, "url", "", "url of the deployment (defaults to $AXIOM_URL or the cloud)")
	pf.StringVar(&flags.token, "token", "", "access token (defaults to $AXIOM_TOKEN)")
	pf.StringVar(&flags.orgID, "org-id", "", "organization id (defaults to $AXIOM_ORG_ID)")
	pf.StringVar(&flags.configFile, "config", "", "yaml profile with url, token and org_id")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file to read AXIOM_* variables from")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log every request")
	pf.DurationVar(&flags.timeout, "timeout", time.Minute, "timeout of a single request")

	cmd.AddCommand(
		newListCommand(flags, out),
		newGetCommand(flags, out),
		newCreateCommand(flags, out),
		newUpdateCommand(flags, out),
		newDeleteCommand(flags, out),
		newInfoCommand(flags, out),
		newStatsCommand(flags, out),
		newUpdateFieldCommand(flags, out),
		newIngestCommand(flags, out),
		newTrimCommand(flags, out),
	)
	return cmd
}

// client builds a client from the flags. Flags take precedence over the
// environment, the environment over the profile.
func (f *rootFlags) client() (*axiom.Client, error) {
	env := axiom.EnvLookup(os.LookupEnv)
	if f.envFile != "" {
		var err error
		if env, err = axiom.LoadEnvFile(f.envFile); err != nil {
			return nil, err
		}
	}
	if f.configFile != "" {
		p, err := loadProfile(f.configFile)
		if err != nil {
			return nil, err
		}
		env = p.lookup(env)
	}

	return axiom.NewClient(axiom.ClientOptions{
		HTTPClient:  &http.Client{Timeout: f.timeout},
		URL:         f.url,
		AccessToken: f.token,
		OrgID:       f.orgID,
		Env:         env,
		Logger:      f.logger,
	})
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
