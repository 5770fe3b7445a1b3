package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"relocation/internal/reorder"
)

func newListCommand(a *app) *cobra.Command {
	var (
		cf      collectionFlags
		deleted bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a collection in position order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cf.key()
			if err != nil {
				return err
			}

			var items []reorder.Item
			if deleted {
				items, err = a.client.ListDeleted(cmd.Context(), key)
			} else {
				items, err = a.coord.Load(cmd.Context(), key)
			}
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No items in %s\n", key)
				return nil
			}
			renderItems(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cf.register(cmd)
	cmd.Flags().BoolVar(&deleted, "deleted", false, "list deleted items instead")
	return cmd
}

func renderItems(w io.Writer, items []reorder.Item) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("POS", "ID", "NAME", "DESC")
	for _, it := range items {
		t.Row(strconv.Itoa(it.Position), it.ID, it.Name, it.Desc)
	}
	fmt.Fprintln(w, t.Render())
}
