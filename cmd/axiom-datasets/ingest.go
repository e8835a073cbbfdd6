package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	axiom "github.com/j-sauer/axiom-go"
	"github.com/j-sauer/axiom-go/model"
)

type ingestFlags struct {
	contentType     string
	encoding        string
	timestampField  string
	timestampFormat string
	csvDelimiter    string
	concurrency     int
}

type fileResult struct {
	File   string             `json:"file"`
	Status model.IngestStatus `json:"status"`
}

func newIngestCommand(flags *rootFlags, out io.Writer) *cobra.Command {
	iflags := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest <dataset> <file>...",
		Short: "ingest files into a dataset",
		Long: `Ingest files into a dataset. Every file is sent with one request; files are
ingested concurrently. The content type is derived from the file extension
(.json, .ndjson, .jsonl, .csv) unless --content-type is given. Use "-" to
read from standard input.`,
		Example: "axiom-datasets ingest logs a.ndjson b.ndjson --encoding zstd",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoding, err := model.ParseContentEncoding(iflags.encoding)
			if err != nil {
				return err
			}
			encoder, err := axiom.EncoderFor(encoding)
			if err != nil {
				return err
			}
			files := args[1:]
			types := make([]model.ContentType, len(files))
			for i, file := range files {
				if types[i], err = iflags.contentTypeOf(file); err != nil {
					return err
				}
			}

			client, err := flags.client()
			if err != nil {
				return err
			}
			opts := model.NewIngestOptionsBuilder().
				WithTimestampField(iflags.timestampField).
				WithTimestampFormat(iflags.timestampFormat).
				WithCSVDelimiter(iflags.csvDelimiter).
				Build()

			results := make([]fileResult, len(files))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(iflags.concurrency, 1))
			for i, file := range files {
				g.Go(func() error {
					r, closeFn, err := openInput(file)
					if err != nil {
						return err
					}
					defer closeFn()

					body, err := encoder(r)
					if err != nil {
						return err
					}
					// closing the encoded stream stops its compressor if the request fails early
					if c, ok := body.(io.Closer); ok && body != r {
						defer c.Close()
					}
					status, err := client.Ingest(ctx, args[0], body, types[i], encoding, &opts)
					if err != nil {
						return fmt.Errorf("ingest %s: %w", file, err)
					}
					flags.logger.Info("ingested file",
						zap.String("file", file),
						zap.Uint64("ingested", status.Ingested),
						zap.Uint64("failed", status.Failed))
					results[i] = fileResult{File: file, Status: status}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(out, results)
		},
	}

	f := cmd.Flags()
	f.StringVar(&iflags.contentType, "content-type", "", "json, ndjson or csv (derived from the file extension if empty)")
	f.StringVar(&iflags.encoding, "encoding", "identity", "compress the upload with identity, gzip or zstd")
	f.StringVar(&iflags.timestampField, "timestamp-field", "", "field to read the event time from (server default _time)")
	f.StringVar(&iflags.timestampFormat, "timestamp-format", "", "format of the timestamp field")
	f.StringVar(&iflags.csvDelimiter, "csv-delimiter", "", "delimiter of csv files")
	f.IntVar(&iflags.concurrency, "concurrency", 4, "number of files ingested at the same time")
	return cmd
}

func (f *ingestFlags) contentTypeOf(file string) (model.ContentType, error) {
	if f.contentType != "" {
		return model.ParseContentType(f.contentType)
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return model.ContentTypeJSON, nil
	case ".ndjson", ".jsonl":
		return model.ContentTypeNDJSON, nil
	case ".csv":
		return model.ContentTypeCSV, nil
	default:
		return 0, fmt.Errorf("cannot derive the content type of %q, use --content-type", file)
	}
}

func openInput(file string) (io.Reader, func(), error) {
	if file == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
