package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes the records table followed by the balance. Rows are
// numbered from 1 and carry the record id so cells can be addressed.
func (d *Dashboard) Render(w io.Writer) error {
	records := d.cache.Records()
	if len(records) == 0 {
		if _, err := fmt.Fprintln(w, "No records yet. Add your first record to get started."); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Total Monthly Balance: $%s\n", d.Balance())
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"#", "ID"}
	for _, c := range Columns {
		title := c.Title()
		if !c.Editable() {
			title += " (read-only)"
		}
		header = append(header, title)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, r := range records {
		row := []string{fmt.Sprint(i + 1), r.ID}
		for _, c := range Columns {
			row = append(row, Cell(r, c))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal Monthly Balance: $%s\n", d.Balance())
	return err
}

// RenderOptions writes the available categories and payment methods.
func (d *Dashboard) RenderOptions(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Categories: %s\nPayment methods: %s\n",
		strings.Join(d.opts.Categories, ", "), strings.Join(d.opts.PaymentMethods, ", "))
	return err
}
