package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// columnAlignment selects how a table column renders. alignStatus columns
// carry raw snake_case outcome values ("succeeded", "timed_out", "passed")
// and render them through statusLabel, so every command colors and
// title-cases statuses the same way.
type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
	alignStatus
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(headers))
	for i, title := range headers {
		header[i] = title
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, len(headers))
		for i := range cells {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		tw.AppendRow(cells)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := alignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		cfg := table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		switch align {
		case alignRight:
			cfg.Align = text.AlignRight
		case alignStatus:
			cfg.Transformer = func(val interface{}) string {
				return statusLabel(fmt.Sprint(val))
			}
		}
		configs = append(configs, cfg)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
