package export

import (
	"io"
	"strconv"
	"strings"

	"slotbook/internal/domain"
)

var header = []string{"date", "time", "serviceTitle", "durationMin", "price", "name", "phone", "status", "paymentId"}

// Filename is the attachment name for a range export.
func Filename(start, end string) string {
	return "bookings_" + start + "_to_" + end + ".csv"
}

// WriteCSV writes an unquoted header and one fully quoted line per row. Lines are joined by "\n"
// with no trailing newline.
func WriteCSV(w io.Writer, rows []domain.Row) error {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(header, ","))
	for _, r := range rows {
		vals := []string{
			r.Date,
			r.Time.String(),
			r.ServiceTitle,
			strconv.Itoa(r.DurationMin),
			r.Price,
			r.Name,
			r.Phone,
			r.Status(),
			r.PaymentID,
		}
		for i, v := range vals {
			vals[i] = quote(v)
		}
		lines = append(lines, strings.Join(vals, ","))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
