package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/collmock/pkg/cli/internal/output"
	"github.com/getmockd/collmock/pkg/collection"
)

var routesCmd = &cobra.Command{
	Use:   "routes <file>",
	Short: "List the routes a collection defines",
	Long: `Prints every distinct route of a collection in the order it first appears.
Only requests whose path is given as a segment array are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading collection: %w", err)
		}
		doc, err := collection.Load(path, data)
		if err != nil {
			return err
		}

		routes := collection.ExtractRoutes(doc)
		w := cmd.OutOrStdout()
		if jsonOutput {
			if routes == nil {
				routes = []string{}
			}
			return output.JSON(w, routes)
		}
		for _, r := range routes {
			fmt.Fprintln(w, "/"+r)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
