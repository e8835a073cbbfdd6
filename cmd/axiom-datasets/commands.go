package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	axiom "github.com/j-sauer/axiom-go"
	"github.com/j-sauer/axiom-go/model"
)

func newListCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list all datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			datasets, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out, datasets)
		},
	}
}

func newGetCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dataset>",
		Short: "show a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			dataset, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out, dataset)
		},
	}
}

func newCreateCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "create a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			dataset, err := client.Create(cmd.Context(), model.DatasetCreateRequest{
				Name:        args[0],
				Description: description,
			})
			if err != nil {
				return err
			}
			return printJSON(out, dataset)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the dataset")
	return cmd
}

func newUpdateCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "update <dataset>",
		Short: "update the description of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			dataset, err := client.Update(cmd.Context(), args[0], model.DatasetUpdateRequest{
				Description: description,
			})
			if err != nil {
				return err
			}
			return printJSON(out, dataset)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description of the dataset")
	_ = cmd.MarkFlagRequired("description") //nolint:errcheck //flag exists
	return cmd
}

func newDeleteCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dataset>",
		Short: "delete a dataset and all its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "deleted dataset %s\n", args[0])
			return err
		},
	}
}

func newInfoCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "info <dataset>",
		Short: "show the usage counters and fields of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			info, err := client.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out, info)
		},
	}
}

func newStatsCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "show the usage counters of all datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out, stats)
		},
	}
}

func newUpdateFieldCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	var req model.FieldUpdateRequest
	cmd := &cobra.Command{
		Use:   "update-field <dataset> <field>",
		Short: "update the metadata of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			field, err := client.UpdateField(cmd.Context(), args[0], args[1], req)
			if err != nil {
				return err
			}
			return printJSON(out, field)
		},
	}
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "description of the field")
	cmd.Flags().StringVar(&req.Unit, "unit", "", "unit of the field")
	cmd.Flags().BoolVar(&req.Hidden, "hidden", false, "hide the field")
	return cmd
}

func newTrimCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "trim <dataset> <max-age>",
		Short:   "delete the blocks of a dataset older than max-age",
		Example: "axiom-datasets trim logs 168h",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxDuration, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("invalid max-age %q: %w", args[1], err)
			}
			// validate before connecting
			if _, err := axiom.FormatMaxDuration(maxDuration); err != nil {
				return err
			}
			client, err := flags.client()
			if err != nil {
				return err
			}
			result, err := client.Trim(cmd.Context(), args[0], maxDuration)
			if err != nil {
				return err
			}
			return printJSON(out, result)
		},
	}
}
