package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/abilities/jobs"
)

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// QueueInspector reports queue state for the reconcile tasks.
type QueueInspector interface {
	InspectQueue(ctx context.Context) (QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
}

// JobsInspector wraps an Asynq inspector for the default queue.
type JobsInspector struct {
	inspector *asynq.Inspector
}

// NewJobsInspector initialises the inspector using the provided Redis options.
func NewJobsInspector(opts asynq.RedisClientOpt) *JobsInspector {
	return &JobsInspector{inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsInspector) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsInspector) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for the default queue.
func (c *JobsInspector) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

func newJobsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the reconcile job queue",
	}
	var scheduled int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print queue counters and upcoming scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)
			if rt.Queue == nil {
				return errors.New("jobs: queue inspector not configured")
			}
			st, err := rt.Queue.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", st.Queue, st.Pending, st.Active, st.Scheduled, st.Retry, st.Archived)
			if err := w.Flush(); err != nil {
				return err
			}
			if scheduled <= 0 {
				return nil
			}
			tasks, err := rt.Queue.ListScheduled(cmd.Context(), scheduled)
			if err != nil {
				return err
			}
			for _, task := range tasks {
				cmd.Printf("scheduled %s %s at %s\n", task.ID, task.Type, task.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"))
			}
			return nil
		},
	}
	stats.Flags().IntVar(&scheduled, "scheduled", 0, "also list up to N scheduled tasks")
	cmd.AddCommand(stats)
	return cmd
}
