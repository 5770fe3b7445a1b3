package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"relocation/internal/reorder"
)

func newMoveCommand(a *app) *cobra.Command {
	var (
		cf  collectionFlags
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move the item at index <from> to index <to>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cf.key()
			if err != nil {
				return err
			}
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("from index: %w", err)
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("to index: %w", err)
			}

			if _, err := a.coord.Load(cmd.Context(), key); err != nil {
				return err
			}
			if _, err := a.coord.BeginDrag(key, from); err != nil {
				return err
			}
			a.coord.DragOver(key, to)
			pending, err := a.coord.Drop(key, to, nil)
			if err != nil {
				return err
			}
			return a.settle(cmd, key, pending, yes)
		},
	}
	cf.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm without prompting")
	return cmd
}

func newStepCommand(a *app, use string, dir int) *cobra.Command {
	var (
		cf  collectionFlags
		yes bool
	)
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Move an item one slot %s", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cf.key()
			if err != nil {
				return err
			}
			if _, err := a.coord.Load(cmd.Context(), key); err != nil {
				return err
			}
			pending, err := a.coord.Move(key, args[0], dir)
			if err != nil {
				return err
			}
			return a.settle(cmd, key, pending, yes)
		},
	}
	cf.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm without prompting")
	return cmd
}

// settle shows the staged move and confirms or cancels it.
func (a *app) settle(cmd *cobra.Command, key reorder.Key, pending *reorder.PendingReorder, yes bool) error {
	out := cmd.OutOrStdout()
	if pending == nil {
		fmt.Fprintln(out, "Nothing to move")
		return nil
	}

	fmt.Fprintln(out, pending.Summary())
	if !yes && !ask(cmd, "Confirm? [y/N] ") {
		if err := a.coord.Cancel(key); err != nil {
			return err
		}
		fmt.Fprintln(out, "Move cancelled")
		return nil
	}

	if err := a.coord.Confirm(cmd.Context(), key); err != nil {
		return err
	}
	fmt.Fprintln(out, "Order saved")
	renderItems(out, a.coord.Items(key))
	return nil
}

func ask(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
