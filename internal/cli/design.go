package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/client"
	"github.com/tradewatt/designer/internal/poller"
)

type DesignOptions struct {
	GlobalOptions

	RequestFile string
}

func DefaultDesignOptions() *DesignOptions {
	return &DesignOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdDesign() *cobra.Command {
	o := DefaultDesignOptions()
	cmd := &cobra.Command{
		Use:   "design -f FILE",
		Short: "Submit a design request and watch the job until it finishes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *DesignOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.RequestFile, "filename", "f", o.RequestFile, "Path to the yaml design request")
}

func (o *DesignOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.RequestFile == "" {
		return fmt.Errorf("a request file is required, use -f")
	}
	return nil
}

func (o *DesignOptions) Run(ctx context.Context, args []string) error {
	data, err := os.ReadFile(o.RequestFile)
	if err != nil {
		return fmt.Errorf("reading request file: %w", err)
	}

	var req api.DesignRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parsing request file: %w", err)
	}

	c := o.Client()
	resp, err := c.CreateDesign(ctx, req)
	if err != nil {
		return err
	}

	if resp.Cached {
		fmt.Println("cached design:")
		return printYaml(resp.Design)
	}

	fmt.Printf("job %s queued, polling...\n", resp.Job.ID)
	final := o.watch(ctx, c, resp.Job)

	switch final.Status {
	case api.JobStatusComplete:
		fmt.Println("design:")
		return printYaml(final.Result)
	case api.JobStatusCancelled:
		return fmt.Errorf("job %s was cancelled", final.ID)
	default:
		msg := "unknown error"
		if final.ErrorMessage != nil {
			msg = *final.ErrorMessage
		}
		return fmt.Errorf("job %s failed: %s", final.ID, msg)
	}
}

// watch polls the job, printing progress transitions, and returns the
// terminal document.
func (o *DesignOptions) watch(ctx context.Context, c client.Designer, job *api.Job) api.Job {
	done := make(chan api.Job, 1)
	lastProgress := -1
	lastStep := ""

	p := poller.New(c, poller.WithOnUpdate(func(j api.Job) {
		step := ""
		if j.CurrentStep != nil {
			step = *j.CurrentStep
		}
		if j.Progress != lastProgress || step != lastStep {
			lastProgress, lastStep = j.Progress, step
			fmt.Printf("  %-10s %3d%%  %s\n", j.Status, j.Progress, step)
		}
		if j.Status.IsTerminal() {
			select {
			case done <- j:
			default:
			}
		}
	}))
	p.Attach(ctx, job.ID)
	defer p.Stop()

	select {
	case j := <-done:
		return j
	case <-ctx.Done():
		return *job
	}
}
