package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Private relay submission utilities",
}

var relayStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print attempt/success counters for every configured relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		health := eng.RelayManager.Health()
		enc, err := json.MarshalIndent(health, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	},
}

func init() {
	relayCmd.AddCommand(relayStatusCmd)
}
