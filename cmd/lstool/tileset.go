package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/tileset"
)

func newTilesetCmd() *cobra.Command {
	var (
		compressed  bool
		scale       int
		columns     int
		palettePath string
	)

	png := &cobra.Command{
		Use:   "png <tileset> <out.png>",
		Short: "Render a tileset as a PNG sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ts, _, err := tileset.Decode(src, compressed)
			if err != nil {
				return errors.Wrap(err, args[0])
			}

			pal := palette.New("debug", palette.TypeFull)
			if palettePath != "" {
				raw, err := os.ReadFile(palettePath)
				if err != nil {
					return err
				}
				if pal, err = palette.FromBytes(palettePath, raw, palette.TypeFull); err != nil {
					return err
				}
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := ts.ExportPNG(f, pal, columns, scale); err != nil {
				f.Close()
				return errors.Wrap(err, "encode png")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tiles written to %s\n", ts.TileCount(), args[1])
			return f.Close()
		},
	}
	png.Flags().BoolVarP(&compressed, "compressed", "c", false, "input is LZ77 compressed")
	png.Flags().IntVarP(&scale, "scale", "s", 1, "integer scale factor")
	png.Flags().IntVar(&columns, "columns", tileset.SheetColumns, "tiles per row")
	png.Flags().StringVarP(&palettePath, "palette", "p", "", "full palette in Genesis format")

	cmd := &cobra.Command{
		Use:   "tileset",
		Short: "Tileset tools",
	}
	cmd.AddCommand(png)
	return cmd
}
