package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// output renders command results as JSON or tables.
type output struct {
	w      io.Writer
	pretty bool
}

func (o *output) json(v any) error {
	var data []byte
	var err error
	if o.pretty {
		data, err = types.MarshalPretty(v)
	} else {
		data, err = types.MarshalCompact(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(o.w, "%s\n", data)
	return err
}

// table prints a bordered table in pretty mode and tab-separated lines
// otherwise.
func (o *output) table(header []string, rows [][]string) {
	if !o.pretty {
		fmt.Fprintln(o.w, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(o.w, strings.Join(row, "\t"))
		}
		return
	}

	t := tablewriter.NewWriter(o.w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.AppendBulk(rows)
	t.Render()
}
