package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	persistFace bool
	faceOut     string
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Locate faces in an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(false)
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := c.Repository().FetchBytes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		resp, err := c.Service().DetectFaces(cmd.Context(), data)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <id-card>",
	Short: "Extract the normalized face from an ID card image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(false)
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := c.Repository().FetchBytes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		resp, err := c.Service().ExtractFace(cmd.Context(), data, persistFace)
		if err != nil {
			return err
		}

		if faceOut != "" && resp.FacePNG != "" {
			png, err := base64.StdEncoding.DecodeString(resp.FacePNG)
			if err != nil {
				return fmt.Errorf("decode face: %w", err)
			}
			if err := os.WriteFile(faceOut, png, 0o644); err != nil {
				return fmt.Errorf("write face: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Face written to %s\n", faceOut)
		}
		// The PNG payload is noise on a terminal.
		resp.FacePNG = ""
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <portrait> <document>",
	Short: "Compare the face of a portrait with the face on an ID document",
	Long: `Compare the face of a portrait with the face on an ID document.

Images may be local paths, file://, http(s):// or azblob:// locations.
The command exits non-zero when the faces do not match.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(false)
		if err != nil {
			return err
		}
		defer c.Close()

		repo := c.Repository()
		portrait, err := repo.FetchBytes(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("portrait: %w", err)
		}
		document, err := repo.FetchBytes(cmd.Context(), args[1])
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}

		svc := c.Service()
		resp, err := svc.CompareImages(cmd.Context(), portrait, document, comparisonOptions(svc.Options()))
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if resp.Result.IsMatch == nil {
			return fmt.Errorf("no verdict: %s", resp.Result.Error)
		}
		if !*resp.Result.IsMatch {
			return fmt.Errorf("faces do not match")
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&persistFace, "persist", false, "store the face in the configured face sink")
	extractCmd.Flags().StringVarP(&faceOut, "output", "o", "", "write the normalized face PNG to this path")
}
