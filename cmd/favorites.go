package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teemow/odoocal/internal/favorites"
	"github.com/teemow/odoocal/internal/server"
	"github.com/teemow/odoocal/internal/tools/batch"
)

func newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage the favorite calendar filters",
		Long: `Manage the favorite calendar filters of the logged-in user.

The list always contains the current user first and "Everybody's calendars"
last. Neither of them can be removed.`,
	}

	cmd.AddCommand(newFavoritesListCmd())
	cmd.AddCommand(newFavoritesAddCmd())
	cmd.AddCommand(newFavoritesRemoveCmd())
	return cmd
}

func newFavoritesListCmd() *cobra.Command {
	out := &outputOptions{}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the favorite calendar filters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := connectCLI(cmd, out, nil)
			if err != nil {
				return err
			}
			defer closeSession(sc)

			if err := sc.Favorites().Init(cmd.Context()); err != nil {
				return err
			}
			return printFavorites(cmd, out, sc)
		},
	}
	addOutputFlag(cmd, out)
	return cmd
}

func newFavoritesAddCmd() *cobra.Command {
	out := &outputOptions{}
	cmd := &cobra.Command{
		Use:   "add <partner-id>...",
		Short: "Add partners to the favorite calendar filters",
		Example: `  odoocal favorites add 7
  odoocal favorites add 7 9 12`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args, "partner id")
			if err != nil {
				return err
			}

			sc, err := connectCLI(cmd, out, nil)
			if err != nil {
				return err
			}
			defer closeSession(sc)

			fav := sc.Favorites()
			if err := fav.Init(cmd.Context()); err != nil {
				return err
			}
			if err := fav.CheckAddable(ids); err != nil {
				return err
			}
			if err := fav.Add(cmd.Context(), ids); err != nil {
				return err
			}
			return printFavorites(cmd, out, sc)
		},
	}
	addOutputFlag(cmd, out)
	return cmd
}

func newFavoritesRemoveCmd() *cobra.Command {
	out := &outputOptions{}
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <partner-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a partner from the favorite calendar filters",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args, "partner id")
			if err != nil {
				return err
			}

			confirmer := promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
			if yes {
				confirmer = favorites.AlwaysConfirm
			}
			sc, err := connectCLI(cmd, out, func(c *server.Config) { c.Confirmer = confirmer })
			if err != nil {
				return err
			}
			defer closeSession(sc)

			fav := sc.Favorites()
			if err := fav.Init(cmd.Context()); err != nil {
				return err
			}
			before := len(fav.Filters())
			if err := fav.Remove(cmd.Context(), ids[0]); err != nil {
				if errors.Is(err, favorites.ErrNotRemovable) || errors.Is(err, favorites.ErrUnknownFilter) {
					return fmt.Errorf("partner %d: %w", ids[0], err)
				}
				return err
			}
			if len(fav.Filters()) == before {
				_, _ = color.New(color.Faint).Fprintln(cmd.ErrOrStderr(), "cancelled")
			}
			return printFavorites(cmd, out, sc)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	addOutputFlag(cmd, out)
	return cmd
}

// connectCLI connects for a one-shot command. The loading indicator is
// only shown for table output on a terminal.
func connectCLI(cmd *cobra.Command, out *outputOptions, configure func(*server.Config)) (*server.ServerContext, error) {
	cfg, err := rootOpts.load()
	if err != nil {
		return nil, err
	}
	cc := connectConfig{Server: configure}
	if !out.JSON && !color.NoColor {
		cc.Indicator = newLoadingIndicator(os.Stderr)
	}
	return connect(cmd.Context(), cfg, cc)
}

func printFavorites(cmd *cobra.Command, out *outputOptions, sc *server.ServerContext) error {
	entries := sc.Favorites().Ordered()
	return out.print(cmd.OutOrStdout(), entries, func(w io.Writer) { printFilters(w, entries) })
}

// parseIDArgs parses positional ids
func parseIDArgs(args []string, name string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for i, arg := range args {
		id, err := batch.ParseID(arg, fmt.Sprintf("%s %d", name, i+1))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
