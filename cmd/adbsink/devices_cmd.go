package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adbsink/adbsink/internal/adb"
)

func init() {
	rootCmd.AddCommand(newDevicesCmd())
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices adb can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			client := adb.NewClient(adb.WithBin(viper.GetString("adb_bin")))
			if err := client.StartServer(ctx); err != nil {
				return err
			}
			devices, err := client.Devices(ctx)
			if err != nil {
				return err
			}
			printDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
}
