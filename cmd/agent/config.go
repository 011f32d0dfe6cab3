package agent

import (
	"github.com/spf13/cobra"

	"github.com/varnishstat-agent/pkg/config"
)

func newConfigCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				return err
			}
			return config.Render(cmd.OutOrStdout(), cfg, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "-> Output format [yaml,toml] | 输出格式")
	return cmd
}
