package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		for _, d := range registry.Catalogue() {
			fmt.Printf("%-14s %-10s %s\n", d.Name, d.SideEffect, d.Description)
		}
		return nil
	},
}
