package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/progression"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate catalog files",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate every catalog file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := catalog.DirSource{Dir: args[0]}
		items, err := src.Load(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d items\n", len(items))
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list <dir>",
	Short: "List catalog items in progression order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.New(cmd.Context(), catalog.DirSource{Dir: args[0]})
		if err != nil {
			return err
		}
		eng := progression.New(cat)

		topics := eng.AvailableTopics()
		if len(topics) == 0 {
			// Items may carry only id prefixes; fall back to a flat dump.
			var ids []string
			for id := range cat.AllItems() {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		}

		for _, topic := range topics {
			fmt.Println(topic + ":")
			for _, it := range eng.DiscoverItems(topic) {
				fmt.Printf("  %-50s %-8s marks=%d  %s\n", it.ID, it.Complexity, it.Marks, it.Subtopic)
			}
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
