package main

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	ris "github.com/kailas-cloud/risclient/pkg/sdk"
)

type resultView struct {
	Rank    int            `json:"rank"`
	Score   *float64       `json:"score,omitempty"`
	Payload map[string]any `json:"payload"`
}

type summaryView struct {
	TotalProducts int      `json:"total_products"`
	AveragePrice  *float64 `json:"average_price"`
}

// printResults writes results in backend order as an indented JSON array.
func printResults(w io.Writer, results []ris.SearchResult) error {
	views := make([]resultView, len(results))
	for i, r := range results {
		views[i] = resultView{Rank: i + 1, Score: r.Score, Payload: r.Payload}
	}
	return printJSON(w, views)
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
