package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shikumiya/airtable-client/pkg/client"
	"github.com/shikumiya/airtable-client/pkg/query"
)

func listCmd(opts *options) *cobra.Command {
	var (
		p     query.Params
		sorts []string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Long: `List the records of the table, one page at a time or, with --all,
every page following the offset cursor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := parseSorts(sorts)
			if err != nil {
				return err
			}
			if sort.Len() > 0 {
				p.Sort = sort
			}

			c, release, err := newClient(opts)
			if err != nil {
				return err
			}
			defer release()

			var resp *client.Response
			if all {
				resp, err = c.GetAll(cmd.Context(), p)
			} else {
				resp, err = c.Get(cmd.Context(), p)
			}
			if resp != nil {
				if perr := printResponse(cmd.OutOrStdout(), resp); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&p.Formula, "formula", "", "filterByFormula expression")
	flags.StringVar(&p.View, "view", "", "view name or id")
	flags.StringArrayVar(&p.Fields, "field", nil, "field to return (repeatable)")
	flags.StringArrayVar(&sorts, "sort", nil, "sort key as field or field:desc (repeatable)")
	flags.IntVar(&p.MaxRecords, "max", 0, "maximum number of records")
	flags.IntVar(&p.PageSize, "page-size", 0, "records per page (at most 100)")
	flags.StringVar(&p.Offset, "offset", "", "cursor returned by a previous page")
	flags.BoolVar(&all, "all", false, "follow the cursor through every page")

	return cmd
}

func findCmd(opts *options) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "find <record-id>",
		Short: "Fetch one record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := newClient(opts)
			if err != nil {
				return err
			}
			defer release()

			resp, err := c.Find(cmd.Context(), args[0], query.Params{Fields: fields})
			if err != nil {
				return err
			}
			if resp.Size() == 0 {
				return fmt.Errorf("record %s not found", args[0])
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringArrayVar(&fields, "field", nil, "field to return (repeatable)")
	return cmd
}

func insertCmd(opts *options) *cobra.Command {
	var raw string

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Create one record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields client.Fields
			if err := json.Unmarshal([]byte(raw), &fields); err != nil {
				return fmt.Errorf("parse --json: %w", err)
			}

			c, release, err := newClient(opts)
			if err != nil {
				return err
			}
			defer release()

			resp, err := c.Insert(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&raw, "json", "", `field values as a JSON object, e.g. {"Name":"x"}`)
	cmd.MarkFlagRequired("json")
	return cmd
}

func bulkInsertCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "bulk-insert",
		Short: "Create records from a JSON array of field objects",
		Long: `Create records from a file holding a JSON array of field objects.
Records are sent in chunks of 10. Use --file - to read standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			var fieldsList []client.Fields
			if err := json.Unmarshal(data, &fieldsList); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			c, release, err := newClient(opts)
			if err != nil {
				return err
			}
			defer release()

			resp, err := c.BulkInsert(cmd.Context(), fieldsList)
			if perr := printResponse(cmd.OutOrStdout(), resp); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file, or - for standard input")
	cmd.MarkFlagRequired("file")
	return cmd
}

func updateCmd(opts *options) *cobra.Command {
	var raw string

	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Merge field values into one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields client.Fields
			if err := json.Unmarshal([]byte(raw), &fields); err != nil {
				return fmt.Errorf("parse --json: %w", err)
			}

			c, release, err := newClient(opts)
			if err != nil {
				return err
			}
			defer release()

			resp, err := c.Update(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&raw, "json", "", "field values as a JSON object")
	cmd.MarkFlagRequired("json")
	return cmd
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>...",
		Short: "Delete records by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := newClient(opts)
			if err != nil {
				return err
			}
			defer release()

			if len(args) == 1 {
				resp, err := c.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printResponse(cmd.OutOrStdout(), resp)
			}

			resp, err := c.BulkDelete(cmd.Context(), args)
			if perr := printResponse(cmd.OutOrStdout(), resp); perr != nil {
				return perr
			}
			return err
		},
	}
}

// parseSorts turns "field" and "field:desc" flags into a sorter.
func parseSorts(specs []string) (*query.Sorter, error) {
	sorter := query.NewSorter()
	for _, spec := range specs {
		field, dir := spec, query.Asc
		if i := strings.LastIndex(spec, ":"); i >= 0 {
			switch d := query.Direction(strings.ToLower(spec[i+1:])); d {
			case query.Asc, query.Desc:
				field, dir = spec[:i], d
			default:
				return nil, fmt.Errorf("sort %q: direction must be asc or desc", spec)
			}
		}
		if field == "" {
			return nil, fmt.Errorf("sort %q: empty field", spec)
		}
		sorter.Append(field, dir)
	}
	return sorter, nil
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}
