package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/churchfinance/ledger-go/internal/api"
	"github.com/churchfinance/ledger-go/internal/session"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders an amount with thousands separators and two decimals,
// e.g. "1,234.50" or "-12.00".
func formatMoney(a api.Amount) string {
	return moneyPrinter.Sprintf("%.2f", a.Float64())
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	now := time.Now()

	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

func formatDate(d api.Date) string {
	if d.IsZero() {
		return "-"
	}

	return d.String()
}

func formatID(id int) string {
	if id == 0 {
		return "-"
	}

	return strconv.Itoa(id)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// formatStatus colors a session status for terminal output. color disables
// itself when stdout is not a terminal.
func formatStatus(s session.Status) string {
	switch s {
	case session.Authenticated:
		return color.GreenString(s.String())
	case session.Unauthenticated:
		return color.YellowString(s.String())
	default:
		return s.String()
	}
}

// formatSigned colors a net figure: red below zero.
func formatSigned(a api.Amount) string {
	if a < 0 {
		return color.RedString(formatMoney(a))
	}

	return formatMoney(a)
}

// printTable writes borderless, left-aligned columns to w.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	table.Header(headers)

	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	return nil
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
