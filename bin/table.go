package main

import (
	"fmt"
	"io"

	"github.com/Velocidex/ordereddict"
	"github.com/olekukonko/tablewriter"
	"www.velocidex.com/golang/proctree/json"
	"www.velocidex.com/golang/proctree/utils"
)

// Renders rows as a text table. Columns are taken from the first row.
func renderTable(rows []*ordereddict.Dict, out io.Writer) {
	table := tablewriter.NewWriter(out)
	defer table.Render()

	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	var columns []string
	for _, row := range rows {
		if columns == nil {
			columns = row.Keys()
			table.SetHeader(columns)
		}

		string_row := []string{}
		for _, key := range columns {
			value, pres := row.Get(key)
			string_row = append(string_row, stringify(value, pres))
		}
		table.Append(string_row)
	}
}

func stringify(value interface{}, pres bool) string {
	if !pres || utils.IsNil(value) {
		return ""
	}

	str, ok := value.(string)
	if ok {
		return str
	}

	// Annotation payloads and argument lists are shown as JSON.
	serialized, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(serialized)
}
