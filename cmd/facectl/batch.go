package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"go-face-verifier/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch <pairs.csv>",
	Short: "Compare many portrait/document pairs",
	Long: `Compare many portrait/document pairs.

The input CSV has two columns, portrait then document. A header row
naming them is skipped. Results are written to stdout as CSV in input
order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		pairs, err := readPairs(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if len(pairs) == 0 {
			return errors.New("no pairs to compare")
		}

		c, err := openContainer(false)
		if err != nil {
			return err
		}
		defer c.Close()

		bar := progressbar.NewOptions(len(pairs),
			progressbar.OptionSetDescription("Comparing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		svc := c.Service()
		items := svc.CompareBatch(cmd.Context(), pairs, comparisonOptions(svc.Options()), func() {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)

		return writeResults(cmd.OutOrStdout(), items)
	},
}

// readPairs parses the two column pair list. Blank cells are rejected with
// their record number.
func readPairs(r io.Reader) ([]models.ComparePair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var pairs []models.ComparePair
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return pairs, nil
		}
		if err != nil {
			return nil, err
		}
		if n == 1 && isHeader(rec) {
			continue
		}
		p := models.ComparePair{
			PortraitURL: strings.TrimSpace(rec[0]),
			DocumentURL: strings.TrimSpace(rec[1]),
		}
		if p.PortraitURL == "" || p.DocumentURL == "" {
			return nil, fmt.Errorf("record %d: portrait and document are required", n)
		}
		pairs = append(pairs, p)
	}
}

func isHeader(rec []string) bool {
	first := strings.ToLower(strings.TrimSpace(rec[0]))
	return strings.HasPrefix(first, "portrait")
}

func writeResults(w io.Writer, items []models.BatchItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "portrait", "document", "is_match", "aggregate_score", "method", "error"}); err != nil {
		return err
	}
	for _, item := range items {
		row := []string{strconv.Itoa(item.Index), item.Pair.PortraitURL, item.Pair.DocumentURL, "", "", "", item.Error}
		if item.Report != nil {
			res := item.Report.Result
			row[5] = res.Method
			if res.IsMatch != nil {
				row[3] = strconv.FormatBool(*res.IsMatch)
			}
			if res.AggregateScore != nil {
				row[4] = strconv.FormatFloat(*res.AggregateScore, 'f', 4, 64)
			}
			if res.Error != "" && row[6] == "" {
				row[6] = res.Error
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
