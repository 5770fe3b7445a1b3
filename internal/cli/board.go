package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"relocation/internal/board"
	"relocation/internal/reorder"
)

func newBoardCommand(a *app) *cobra.Command {
	var family, village string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive reorder board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := reorder.Family(family)
			if !f.Valid() {
				return fmt.Errorf("unknown family %q", family)
			}
			if f.Scoped() && village == "" {
				return fmt.Errorf("%s need a village", f)
			}
			m := board.New(cmd.Context(), a.coord, f, village, a.logger)
			_, err := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&family, "family", string(reorder.FamilyStages), "catalog family: stages, options or buildings")
	cmd.Flags().StringVar(&village, "village", "", "village whose buildings the board can show")
	return cmd
}
