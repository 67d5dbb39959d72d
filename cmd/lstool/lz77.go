package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rcarmo/landstalker/internal/codec"
)

func newLZ77Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lz77",
		Short: "Compress or decompress LZ77 blobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <in> <out>",
		Short: "Decompress a blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, n, err := codec.LZ77Decode(src)
			if err != nil {
				return errors.Wrap(err, args[0])
			}
			if n < len(src) {
				log.Info("%s: %d trailing bytes after compressed data", args[0], len(src)-n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d -> %d bytes\n", n, len(out))
			return os.WriteFile(args[1], out, 0o644)
		},
	}, &cobra.Command{
		Use:   "encode <in> <out>",
		Short: "Compress a blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := codec.LZ77Encode(src)
			fmt.Fprintf(cmd.OutOrStdout(), "%d -> %d bytes\n", len(src), len(out))
			return os.WriteFile(args[1], out, 0o644)
		},
	})
	return cmd
}
