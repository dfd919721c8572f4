package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/tradewatt/designer/internal/client"
)

type GlobalOptions struct {
	ServerUrl  string
	Timeout    time.Duration
	ConfigFile string
}

// CtlConfig is the optional yaml config file of the CLI.
type CtlConfig struct {
	Service struct {
		URL     string `json:"url,omitempty"`
		Timeout string `json:"timeout,omitempty"`
	} `json:"service"`
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ServerUrl: "http://localhost:3443",
		Timeout:   30 * time.Second,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the server")
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the yaml config file")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	if o.ConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var cfg CtlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Service.URL != "" {
		o.ServerUrl = cfg.Service.URL
	}
	if cfg.Service.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Service.Timeout)
		if err != nil {
			return fmt.Errorf("parsing config timeout: %w", err)
		}
		o.Timeout = timeout
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

func (o *GlobalOptions) Client() client.Designer {
	return client.NewDesigner(o.ServerUrl, o.Timeout)
}
