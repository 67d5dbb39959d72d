package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcarmo/landstalker/internal/text"
)

func newStringsCmd() *cobra.Command {
	var format string

	decode := &cobra.Command{
		Use:   "decode <file>",
		Short: "Print every string record in a file, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := text.ParseFormat(format)
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := text.DefaultContext()
			if h := f.HeaderRow(); h != "" {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			for pos := 0; pos < len(src); {
				s, n, err := ctx.Decode(f, src[pos:])
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
				fmt.Fprintln(cmd.OutOrStdout(), ctx.Serialise(s))
				pos += n
			}
			return nil
		},
	}
	decode.Flags().StringVarP(&format, "format", "f", "plain", "record format (plain, huffman, intro, endcredit)")

	cmd := &cobra.Command{
		Use:   "strings",
		Short: "String record tools",
	}
	cmd.AddCommand(decode)
	return cmd
}
