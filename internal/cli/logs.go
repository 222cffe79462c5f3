package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/eventlog"
)

var (
	logsFollow bool
	logsTail   int
	logsTask   string
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow the event log (like tail -f)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsTask, "task", "", "Only show events for this task")
	rootCmd.AddCommand(logsCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the orchestrator event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}

		seen, err := printEvents(cfg.VillageDir, 0, true)
		if err != nil {
			return err
		}

		if !logsFollow {
			return nil
		}
		for {
			time.Sleep(time.Second)
			n, err := printEvents(cfg.VillageDir, seen, false)
			if err != nil {
				return err
			}
			seen += n
		}
	},
}

// printEvents prints task-filtered events from the raw log starting at raw
// index skip, optionally truncated to the last logsTail lines on the first
// call, and returns how many raw (unfiltered) events it consumed - the
// index a subsequent call should resume from.
func printEvents(villageDir string, skip int, applyTail bool) (int, error) {
	events, err := eventlog.Read(villageDir)
	if err != nil {
		return 0, err
	}
	if skip > len(events) {
		skip = len(events)
	}
	fresh := events[skip:]

	var filtered []eventlog.Event
	for _, ev := range fresh {
		if logsTask != "" && ev.TaskID != logsTask {
			continue
		}
		filtered = append(filtered, ev)
	}
	if applyTail && logsTail > 0 && len(filtered) > logsTail {
		filtered = filtered[len(filtered)-logsTail:]
	}

	for _, ev := range filtered {
		fmt.Println(eventlog.Format(ev))
	}
	return len(fresh), nil
}
