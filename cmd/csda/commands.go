package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nasa-impact/csda-go"
	"github.com/nasa-impact/csda-go/internal/output"
)

type vendorTable []csda.Vendor

func (t vendorTable) Header() []string { return []string{"ID", "SLUG", "NAME", "TASKING"} }

func (t vendorTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, v := range t {
		rows = append(rows, []string{strconv.Itoa(v.ID), v.Slug, v.FullName, strconv.FormatBool(v.HasTasking)})
	}
	return rows
}

type productTable []csda.Product

func (t productTable) Header() []string { return []string{"ID", "SLUG", "NAME"} }

func (t productTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{strconv.Itoa(p.ID), p.Slug, p.Name})
	}
	return rows
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Log in and verify the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Verify(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer().Print(result)
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [username]",
		Short: "Show a user profile (defaults to the logged-in user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := a.cfg.Username
			if len(args) == 1 {
				username = args[0]
			}
			if username == "" {
				return fmt.Errorf("username is required: pass it as an argument or set --username or %s", csda.EnvUsername)
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			profile, err := client.Profile(cmd.Context(), username)
			if err != nil {
				return err
			}
			return a.printer().Print(profile)
		},
	}
}

func newVendorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			vendors, err := client.ListVendors(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer().Print(vendorTable(vendors))
		},
	}
}

func newProductsCmd(a *app) *cobra.Command {
	var vendorID int

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the products of a vendor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			products, err := client.ListProducts(cmd.Context(), vendorID)
			if err != nil {
				return err
			}
			return a.printer().Print(productTable(products))
		},
	}
	cmd.Flags().IntVar(&vendorID, "vendor", 0, "Vendor ID")
	_ = cmd.MarkFlagRequired("vendor")
	return cmd
}

func newProposeCmd(a *app) *cobra.Command {
	var submit bool

	cmd := &cobra.Command{
		Use:   "propose <proposal.json>",
		Short: "Create a tasking proposal from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var proposal csda.CreateTaskingProposal
			if err := readJSONFile(args[0], &proposal); err != nil {
				return err
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			created, err := client.CreateTaskingProposal(cmd.Context(), &proposal, submit)
			if err != nil {
				return err
			}
			return a.printer().Print(created)
		},
	}
	cmd.Flags().BoolVar(&submit, "submit", false, "Submit the proposal for review instead of saving a draft")
	return cmd
}

func newOrderParametersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order-parameters <product-id>",
		Short: "Show the tasking order parameters of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			params, err := client.TaskingOrderParameters(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer().Print(params)
		},
	}
}

func newOrderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order <product-id> <payload.json>",
		Short: "Place a tasking order from a JSON payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload csda.OrderPayload
			if err := readJSONFile(args[1], &payload); err != nil {
				return err
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			order, err := client.CreateTaskingOrder(cmd.Context(), args[0], &payload)
			if err != nil {
				return err
			}
			return a.printer().Print(order)
		},
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "download <collection-id> <item-id> <asset-key>",
		Short: "Download one asset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := dest
			if path == "" {
				path = args[2]
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Download(cmd.Context(), args[0], args[1], args[2], path); err != nil {
				return err
			}
			output.OK(a.stderr, "%s/%s/%s -> %s", args[0], args[1], args[2], path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination file (default: the asset key)")
	return cmd
}

func newDownloadItemCmd(a *app) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "download-item <item.json> <asset-key>",
		Short: "Download an asset of a STAC item read from a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var item csda.Item
			if err := readJSONFile(args[0], &item); err != nil {
				return err
			}
			path := dest
			if path == "" {
				path = args[1]
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.DownloadItem(cmd.Context(), &item, args[1], path); err != nil {
				return err
			}
			output.OK(a.stderr, "%s/%s/%s -> %s", item.Collection, item.ID, args[1], path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination file (default: the asset key)")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.printer().Print(map[string]string{
				"version":            csda.Version,
				"user_agent":         csda.UserAgent(),
				"stac_version_range": csda.STACVersionRange,
			})
		},
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
