package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcarmo/landstalker/internal/behaviours"
	"github.com/rcarmo/landstalker/internal/labels"
)

func newBehavioursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "behaviours",
		Short: "Convert behaviour scripts to and from YAML",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "yaml <offsets> <table>",
		Short: "Print every behaviour as a YAML document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offsets, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			table, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			t, err := behaviours.Unpack(offsets, table)
			if err != nil {
				return err
			}
			l, err := labels.LoadFile(LabelsPath)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), strings.Join(behaviours.AllToYaml(t, l), "---\n"))
			return nil
		},
	}, &cobra.Command{
		Use:   "pack <yaml> <offsets-out> <table-out>",
		Short: "Encode a YAML stream back into the offset and script tables",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var docs [][]byte
			for _, d := range strings.Split(string(src), "---\n") {
				if strings.TrimSpace(d) != "" {
					docs = append(docs, []byte(d))
				}
			}
			t, err := behaviours.AllFromYaml(docs)
			if err != nil {
				return err
			}
			offsets, table, err := behaviours.Pack(t)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], offsets, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d behaviours, %d script bytes\n", len(t), len(table))
			return os.WriteFile(args[2], table, 0o644)
		},
	})
	return cmd
}
