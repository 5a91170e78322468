package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-face-verifier/internal/reconcile"
	"go-face-verifier/pkg/models"
)

var (
	idType      string
	userFields  map[string]string
	ocrFields   map[string]string
	documentLoc string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check user-entered fields against the text of an ID document",
	Example: `  facectl reconcile --id-type "Ghana Card" \
    --field ghana_pin=GHA-123456789-0 --field "full_name=Kwame Mensah" \
    --field date_of_birth=1990-01-15 --field sex=M --document card.jpg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(userFields) == 0 {
			return errors.New("at least one --field is required")
		}
		if len(ocrFields) == 0 && documentLoc == "" {
			return errors.New("one of --ocr or --document is required")
		}

		c, err := openContainer(documentLoc != "")
		if err != nil {
			return err
		}
		defer c.Close()

		report, err := c.Service().Reconcile(cmd.Context(), models.ReconcileRequest{
			IDType:      idType,
			UserFields:  userFields,
			OCRFields:   ocrFields,
			DocumentURL: documentLoc,
		})
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("document did not reconcile: %d failed, %d missing",
				len(report.FailedFields), len(report.MissingFields))
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&idType, "id-type", reconcile.GhanaCard,
		"document type: "+strings.Join(reconcile.IDTypes(), ", "))
	reconcileCmd.Flags().StringToStringVar(&userFields, "field", nil, "user-entered field as name=value (repeatable)")
	reconcileCmd.Flags().StringToStringVar(&ocrFields, "ocr", nil, "already extracted document field as name=value (repeatable)")
	reconcileCmd.Flags().StringVar(&documentLoc, "document", "", "document image to read text from")
}
