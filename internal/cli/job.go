package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type JobOptions struct {
	GlobalOptions
	Status string
	Limit  int
}

func DefaultJobOptions() *JobOptions {
	return &JobOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdJob() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect or cancel design jobs.",
	}
	cmd.AddCommand(newCmdJobList())
	cmd.AddCommand(newCmdJobGet())
	cmd.AddCommand(newCmdJobCancel())
	return cmd
}

func newCmdJobList() *cobra.Command {
	o := DefaultJobOptions()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List design jobs, newest last.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			return o.RunList(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	cmd.Flags().StringVarP(&o.Status, "status", "s", "", "Only list jobs with this status.")
	cmd.Flags().IntVarP(&o.Limit, "limit", "l", 0, "Cap the number of jobs listed.")
	return cmd
}

func newCmdJobGet() *cobra.Command {
	o := DefaultJobOptions()
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Display a design job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			return o.RunGet(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func newCmdJobCancel() *cobra.Command {
	o := DefaultJobOptions()
	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an active design job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			return o.RunCancel(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobOptions) RunList(ctx context.Context) error {
	jobs, err := o.Client().ListJobs(ctx, o.Status, o.Limit)
	if err != nil {
		return err
	}
	return printYaml(jobs)
}

func (o *JobOptions) RunGet(ctx context.Context, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id: %w", err)
	}

	job, err := o.Client().GetJob(ctx, id)
	if err != nil {
		return err
	}
	return printYaml(job)
}

func (o *JobOptions) RunCancel(ctx context.Context, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id: %w", err)
	}

	job, err := o.Client().CancelJob(ctx, id)
	if err != nil {
		return err
	}
	return printYaml(job)
}
