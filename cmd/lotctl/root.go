package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghuser/lotdesk/pkg/logger"
	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
	"github.com/ghuser/lotdesk/services/lot/infrastructure/remote"
)

const defaultRemote = "http://localhost:3000/api"

type rootOptions struct {
	remote   string
	timeout  time.Duration
	logLevel string
	debug    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "lotctl",
		Short:         "Inspect and edit auction lots in the remote item store",
		SilenceUsage:  true,
	}

	remoteDefault := os.Getenv("REMOTE_BASE_URL")
	if remoteDefault == "" {
		remoteDefault = defaultRemote
	}
	cmd.PersistentFlags().StringVar(&opts.remote, "remote", remoteDefault, "Base URL of the item store (env REMOTE_BASE_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Dump HTTP requests and responses")

	cmd.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newDupCmd(opts),
		newTotalsCmd(opts),
	)
	return cmd
}

// collection builds a collection over the remote store and loads it.
func (o *rootOptions) collection(ctx context.Context) (*appsvcs.Collection, error) {
	log := logger.NewWithWriter(os.Stderr, o.logLevel)
	store := remote.NewItemStore(remote.Options{
		BaseURL: o.remote,
		Timeout: o.timeout,
		Debug:   o.debug,
	}, log)

	c := appsvcs.NewCollection(store, nil, log, appsvcs.WithRemoteTimeout(o.timeout))
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("load lots: %w", err)
	}
	return c, nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all lots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.collection(cmd.Context())
			if err != nil {
				return err
			}
			printTable(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

// draftFlags are the form fields shared by add and edit.
type draftFlags struct {
	title, description, consignor, low, high string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Lot title")
	cmd.Flags().StringVar(&f.description, "description", "", "Lot description")
	cmd.Flags().StringVar(&f.consignor, "consignor", "", "Consignor name")
	cmd.Flags().StringVar(&f.low, "low", "", "Low estimate")
	cmd.Flags().StringVar(&f.high, "high", "", "High estimate")
}

// apply overlays the flags the user set onto d.
func (f *draftFlags) apply(cmd *cobra.Command, d *models.Draft) {
	if cmd.Flags().Changed("title") {
		d.SetTitle(f.title)
	}
	if cmd.Flags().Changed("description") {
		d.SetDescription(f.description)
	}
	if cmd.Flags().Changed("consignor") {
		d.SetConsignor(f.consignor)
	}
	if cmd.Flags().Changed("low") {
		d.SetEstimateLow(f.low)
	}
	if cmd.Flags().Changed("high") {
		d.SetEstimateHigh(f.high)
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a lot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.collection(cmd.Context())
			if err != nil {
				return err
			}
			var d models.Draft
			flags.apply(cmd, &d)
			item, err := c.Add(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added lot %d (sale #%d)\n", item.ID, item.SaleNumber)
			printTable(cmd.OutOrStdout(), c)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a lot; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.collection(cmd.Context())
			if err != nil {
				return err
			}
			current, ok := c.Get(id)
			if !ok {
				return fmt.Errorf("lot %d not found", id)
			}
			d := models.DraftFromItem(current)
			flags.apply(cmd, &d)
			if _, err := c.Update(cmd.Context(), id, d); err != nil {
				return err
			}
			printTable(cmd.OutOrStdout(), c)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete lots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				// a repeated id would toggle the selection back off
				if !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
			c, err := opts.collection(cmd.Context())
			if err != nil {
				return err
			}

			sel := appsvcs.NewCoordinator(c, logger.Discard())
			for _, id := range ids {
				if !sel.Toggle(id) {
					fmt.Fprintf(cmd.ErrOrStderr(), "lot %d not found, skipping\n", id)
				}
			}
			err = sel.BulkDelete(cmd.Context())
			printTable(cmd.OutOrStdout(), c)
			return err
		},
	}
}

func newDupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dup <id>",
		Short: "Duplicate a lot with the next id and sale number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := opts.collection(cmd.Context())
			if err != nil {
				return err
			}
			item, err := c.Duplicate(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "duplicated lot %d as %d (sale #%d)\n", id, item.ID, item.SaleNumber)
			printTable(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newTotalsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Print lot count and estimate totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.collection(cmd.Context())
			if err != nil {
				return err
			}
			s := c.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "lots: %d\nlow:  %s\nhigh: %s\n",
				s.Count, s.LowTotal.StringFixed(2), s.HighTotal.StringFixed(2))
			return nil
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lot id %q", s)
	}
	return id, nil
}
