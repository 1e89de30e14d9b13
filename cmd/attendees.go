package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/odoocal/internal/tools/batch"
)

func newAttendeesCmd() *cobra.Command {
	out := &outputOptions{}
	var record string

	cmd := &cobra.Command{
		Use:   "attendees <partner-id>...",
		Short: "Show attendee tags with their participation status",
		Example: `  odoocal attendees 3 7
  odoocal attendees 3 7 --record 42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args, "partner id")
			if err != nil {
				return err
			}
			var recordID *int64
			if record != "" {
				id, err := batch.ParseID(record, "record")
				if err != nil {
					return err
				}
				recordID = &id
			}

			sc, err := connectCLI(cmd, out, nil)
			if err != nil {
				return err
			}
			defer closeSession(sc)

			tags, err := sc.Attendees().Tags(cmd.Context(), ids, recordID)
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), tags, func(w io.Writer) { printTags(w, tags) })
		},
	}

	cmd.Flags().StringVar(&record, "record", "", "Event id whose participation statuses are shown")
	addOutputFlag(cmd, out)
	return cmd
}
