package cmd

import (
	"clubctl/internal/autostart"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start the inbox watcher automatically at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		starter := autostart.New()
		if err := starter.Install(execPath); err != nil {
			return err
		}

		fmt.Printf("clubctl inbox watcher registered for autostart (%s)\n", starter.Location())
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the inbox watcher autostart entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		starter := autostart.New()

		installed, err := starter.IsInstalled()
		if err != nil {
			return err
		}
		if !installed {
			fmt.Println("clubctl inbox watcher is not registered for autostart")
			return nil
		}

		if err := starter.Uninstall(); err != nil {
			return err
		}

		fmt.Println("clubctl inbox watcher autostart removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd, uninstallCmd)
}
