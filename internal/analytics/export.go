package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// Table is a rendered export: a header and string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// MessageColumns is the fixed column set of the analysis export.
var MessageColumns = []string{
	"id_conversa",
	"autor",
	"nome do contato",
	"numero do contato",
	"data hora de início da conversa",
	"caixa de entrada",
	"tempo para a primeira resposta",
	"status da mensagem",
	"mensagem",
	"data hora da mensagem",
}

// MessageTable renders analysis rows.
func MessageTable(rows []MessageRow) Table {
	t := Table{Columns: MessageColumns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.ConversationID, 10),
			r.Author,
			r.ContactName,
			r.ContactPhone,
			timestamp.Format(r.ConversationStartedAt),
			r.InboxName,
			r.FirstReplyDelay,
			r.Status,
			r.Content,
			timestamp.Format(r.SentAt),
		})
	}
	return t
}

// ConversationTable renders conversation rows restricted to columns, in the
// given order. Empty columns select every column present.
func ConversationTable(rows []ConversationRow, columns []string) Table {
	if len(columns) == 0 {
		columns = ConversationColumns(rows)
	}
	records := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Fields())
	}
	return RecordTable(records, columns)
}

// RecordTable renders generic records restricted to columns. Missing cells
// are empty.
func RecordTable(records []map[string]any, columns []string) Table {
	t := Table{Columns: columns, Rows: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = model.Text(rec[col])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteCSV writes the table as UTF-8 CSV with a header line.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the table as a single-sheet workbook.
func (t Table) WriteXLSX(w io.Writer, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}

	writeRow := func(n int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return sw.SetRow(cell, values)
	}

	if err := writeRow(1, t.Columns); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
