package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/leaknews/content"
)

// checkCmd fetches one listing page and prints what the site would make of it.
var checkCmd = &cobra.Command{
	Use:   "check [page]",
	Short: "Fetch a listing page from the content API and print it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid page %q", args[0])
			}
			page = n
		}

		cfg := content.DefaultConfig(siteCfg.ContentAPI)
		if siteCfg.NoMoreMarker != "" {
			cfg.NoMoreMarker = siteCfg.NoMoreMarker
		}
		client, err := content.New(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		listing, err := client.ListPosts(ctx, page)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "page %d: %s\n", page, listing.Kind)
		if listing.Detail != "" {
			fmt.Fprintf(out, "  %s\n", listing.Detail)
		}
		for _, p := range listing.Posts {
			fmt.Fprintf(out, "  %s  %s\n", p.Path(), p.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
