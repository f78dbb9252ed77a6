package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	odata "github.com/nlstn/go-odata-client"
)

// batchFile is the YAML description of a batch request.
//
//	operations:
//	  - id: "1"
//	    method: GET
//	    path: Customers('ALFKI')
//	  - id: "2"
//	    method: POST
//	    path: Orders
//	    changeset: cs1
//	    body: '{"Total": 10}'
//	changesets:
//	  - id: cs1
type batchFile struct {
	Operations []batchFileOperation `yaml:"operations"`
	Changesets []batchFileChangeset `yaml:"changesets"`
}

type batchFileOperation struct {
	ID        string        `yaml:"id"`
	Method    string        `yaml:"method"`
	Path      string        `yaml:"path"`
	Headers   []batchHeader `yaml:"headers"`
	Body      string        `yaml:"body"`
	Changeset string        `yaml:"changeset"`
}

type batchHeader struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type batchFileChangeset struct {
	ID         string   `yaml:"id"`
	Operations []string `yaml:"operations"`
}

// batchReport is the YAML rendering of a decoded batch.
type batchReport struct {
	Responses  []responseReport `yaml:"responses"`
	Changesets []changesetCheck `yaml:"changesets,omitempty"`
}

type responseReport struct {
	ID      string            `yaml:"id"`
	Status  int               `yaml:"status,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
	Error   string            `yaml:"error,omitempty"`
}

type changesetCheck struct {
	ID         string `yaml:"id"`
	Successful bool   `yaml:"successful"`
}

func readBatchFile(path string) ([]odata.Operation, []odata.Changeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	ops := make([]odata.Operation, len(f.Operations))
	for i, o := range f.Operations {
		op := odata.Operation{ID: o.ID, Method: o.Method, Path: o.Path, ChangesetID: o.Changeset}
		for _, h := range o.Headers {
			op.Headers = append(op.Headers, odata.BatchHeader{Name: h.Name, Value: h.Value})
		}
		if o.Body != "" {
			op.Body = []byte(o.Body)
		}
		ops[i] = op
	}
	changesets := make([]odata.Changeset, len(f.Changesets))
	for i, cs := range f.Changesets {
		changesets[i] = odata.Changeset{ID: cs.ID, OperationIDs: cs.Operations}
	}
	return ops, changesets, nil
}

func newBatchReport(result *odata.BatchResult) batchReport {
	var r batchReport
	for _, resp := range result.Responses {
		rep := responseReport{ID: resp.ID, Status: resp.StatusCode, Body: string(resp.Body)}
		if resp.Err != nil {
			rep.Error = resp.Err.Error()
		}
		if len(resp.Header) > 0 {
			rep.Headers = make(map[string]string, len(resp.Header))
			for name := range resp.Header {
				rep.Headers[name] = resp.Header.Get(name)
			}
		}
		r.Responses = append(r.Responses, rep)
	}
	for _, id := range result.Changesets() {
		r.Changesets = append(r.Changesets, changesetCheck{ID: id, Successful: result.IsChangesetSuccessful(id)})
	}
	return r
}

func writeReport(w io.Writer, result *odata.BatchResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newBatchReport(result)); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if failed := result.Failed(); len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, resp := range failed {
			ids[i] = resp.ID
		}
		sort.Strings(ids)
		return fmt.Errorf("%d operation(s) failed: %v", len(failed), ids)
	}
	return nil
}

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Encode, decode and send $batch requests described in YAML",
	}
	cmd.AddCommand(newBatchEncodeCmd(a), newBatchDecodeCmd(a), newBatchSendCmd(a))
	return cmd
}

func newBatchEncodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <batch.yaml>",
		Short: "Print the multipart body of a batch request",
		Long: `Print the multipart body of a batch request to stdout. The request
headers (Content-Type and, with continue_on_error, Prefer) go to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, changesets, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			codec := odata.NewBatchCodec(append(a.batchOptions(), odata.WithLiteralFormatter(a.literalFormatter()))...)
			env, err := codec.Encode(ops, changesets)
			if err != nil {
				return err
			}
			for name, values := range env.Header() {
				for _, v := range values {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, v)
				}
			}
			_, err = cmd.OutOrStdout().Write(env.Body)
			return err
		},
	}
}

func newBatchDecodeCmd(a *app) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "decode <batch.yaml> <response-file>",
		Short: "Correlate a saved multipart response with the batch that produced it",
		Long: `Correlate a saved multipart response with the batch that produced it and
print one YAML entry per operation. The boundary is taken from --content-type
or, when that is empty, from the first delimiter line of the response.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, changesets, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			body, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			codec := odata.NewBatchCodec(a.batchOptions()...)
			env, err := codec.Encode(ops, changesets)
			if err != nil {
				return err
			}
			result, err := codec.Decode(env, contentType, body)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content-Type header of the response")
	return cmd
}

func newBatchSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <batch.yaml>",
		Short: "Send a batch to the service and print the correlated responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, changesets, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			result, err := c.ExecuteBatch(cmd.Context(), ops, changesets)
			if err != nil {
				var odataErr *odata.ODataError
				if errors.As(err, &odataErr) && len(odataErr.Body) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", odataErr.Body)
				}
				return err
			}
			return writeReport(cmd.OutOrStdout(), result)
		},
	}
}
