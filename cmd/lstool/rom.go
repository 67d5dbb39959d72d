package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rcarmo/landstalker/internal/config"
	"github.com/rcarmo/landstalker/internal/handler"
	"github.com/rcarmo/landstalker/internal/rom"
)

func romConfig(path string) config.RomConfig {
	return config.RomConfig{
		Path:        path,
		LabelsPath:  LabelsPath,
		OffsetsPath: OffsetsPath,
		Region:      Region,
	}
}

func newRomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rom",
		Short: "Inspect and patch ROM images",
	}
	cmd.PersistentFlags().StringVar(&OffsetsPath, "offsets", "", "offsets YAML file replacing the built in table")
	cmd.PersistentFlags().StringVar(&Region, "region", "auto", "ROM region (auto, JP, US, UK, FR, DE, US_BETA)")

	cmd.AddCommand(&cobra.Command{
		Use:   "info <rom>",
		Short: "Print the header and the data found in a ROM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, data, err := handler.OpenRom(romConfig(args[0]))
			if err != nil {
				return err
			}
			hdr, err := r.Header()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Title:    %s\n", hdr.Title())
			fmt.Fprintf(cmd.OutOrStdout(), "Region:   %s (%s)\n", r.Region(), r.RegionName())
			fmt.Fprintf(cmd.OutOrStdout(), "Checksum: %04X (stored %04X)\n", r.Checksum(), r.StoredChecksum())
			for _, line := range data.Summary() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "fix <rom> [out]",
		Short: "Recalculate the header checksum",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rom.Load(args[0])
			if err != nil {
				return err
			}
			old := r.StoredChecksum()
			sum := r.FixChecksum()
			out := args[0]
			if len(args) == 2 {
				out = args[1]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checksum %04X -> %04X\n", old, sum)
			return r.Save(out)
		},
	}, &cobra.Command{
		Use:   "extract <rom> <dir>",
		Short: "Write every decoded entry to a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, data, err := handler.OpenRom(romConfig(args[0]))
			if err != nil {
				return err
			}
			if err := data.Save(args[1]); err != nil {
				return errors.Wrapf(err, "extract to %s", args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted to %s\n", args[1])
			return nil
		},
	}, &cobra.Command{
		Use:   "inject <rom> <dir> [out]",
		Short: "Write entries edited under an extracted directory back into a ROM",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, data, err := handler.OpenRom(romConfig(args[0]))
			if err != nil {
				return err
			}
			n, err := data.Import(args[1])
			if err != nil {
				return errors.Wrapf(err, "import from %s", args[1])
			}
			out := args[0]
			if len(args) == 3 {
				out = args[2]
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no entries changed")
				return nil
			}
			if err := data.InjectIntoRom(r); err != nil {
				return err
			}
			if err := r.Save(out); err != nil {
				return err
			}
			log.Info("wrote %s", out)
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries injected, checksum %04X\n", n, r.StoredChecksum())
			return nil
		},
	})
	return cmd
}
