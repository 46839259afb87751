// Package main implements the airtable CLI: record operations on one table
// from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/shikumiya/airtable-client/pkg/client"
	"github.com/shikumiya/airtable-client/pkg/logging"
	"github.com/shikumiya/airtable-client/pkg/ratelimit"
)

var version = "0.1.0"

// options holds the global flags.
type options struct {
	baseID   string
	table    string
	apiKey   string
	apiURL   string
	redis    string
	debug    bool
	typecast bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "airtable",
		Short:         "Airtable record CLI",
		Long:          `airtable lists, finds, creates, updates and deletes the records of one Airtable table.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.FromEnv())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.baseID, "base", os.Getenv("AIRTABLE_BASE_ID"), "base id (env AIRTABLE_BASE_ID)")
	flags.StringVar(&opts.table, "table", "", "table name")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("AIRTABLE_API_KEY"), "API key (env AIRTABLE_API_KEY)")
	flags.StringVar(&opts.apiURL, "api-url", envOr("AIRTABLE_API_URL", client.DefaultAPIURL), "API root (env AIRTABLE_API_URL)")
	flags.StringVar(&opts.redis, "redis", "", "Redis address or URL to share the rate limit lockout between processes")
	flags.BoolVar(&opts.debug, "debug", false, "log request URLs and response bodies")
	flags.BoolVar(&opts.typecast, "typecast", false, "let the server convert string values on create and update")

	cmd.AddCommand(listCmd(opts))
	cmd.AddCommand(findCmd(opts))
	cmd.AddCommand(insertCmd(opts))
	cmd.AddCommand(bulkInsertCmd(opts))
	cmd.AddCommand(updateCmd(opts))
	cmd.AddCommand(deleteCmd(opts))

	return cmd
}

// newClient builds the table client. The returned func releases it.
func newClient(opts *options) (*client.Client, func(), error) {
	cfg := client.DefaultConfig(opts.baseID, opts.table, opts.apiKey)
	cfg.APIURL = opts.apiURL
	cfg.Debug = opts.debug
	cfg.Typecast = opts.typecast

	var rdb *redis.Client
	if opts.redis != "" {
		redisOpts, err := redisOptions(opts.redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		rdb = redis.NewClient(redisOpts)
		cfg.LockoutStore = ratelimit.NewRedisStore(rdb, opts.baseID)
	}

	c, err := client.New(cfg)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, err
	}

	release := func() {
		c.Close()
		if rdb != nil {
			rdb.Close()
		}
	}
	return c, release, nil
}

func redisOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// output is the JSON shape printed for every command.
type output struct {
	Records []client.Record   `json:"records"`
	Offset  string            `json:"offset,omitempty"`
	Errors  []client.APIError `json:"errors,omitempty"`
}

func printResponse(w io.Writer, resp *client.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Records: resp.Records(),
		Offset:  resp.Offset(),
		Errors:  resp.Errors(),
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
