package cli

import (
	"github.com/spf13/cobra"

	"storefront/internal/config"
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront API: catalog, cart, favorites and checkout",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewSeedCommand())
	return cmd
}
