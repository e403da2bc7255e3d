// Package export renders admin ticket listings as CSV or XLSX files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported_export_format")

const (
	sheetName  = "Boletos"
	timeLayout = "2006-01-02 15:04"
)

var headers = []string{
	"Número", "Estado", "Nombre", "Apellido", "Teléfono", "Email",
	"Entidad", "Promotor", "Reservado", "Comprado",
}

var statusLabels = map[ticketdomain.TicketStatus]string{
	ticketdomain.TicketStatusAvailable: "Disponible",
	ticketdomain.TicketStatusReserved:  "Reservado",
	ticketdomain.TicketStatusPurchased: "Vendido",
}

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName returns "boletos-<raffleID>.<ext>".
func (f Format) FileName(raffleID string) string {
	return "boletos-" + raffleID + "." + string(f)
}

// Write renders tickets to w in the given format.
func Write(w io.Writer, format Format, tickets []ticketdomain.AdminTicket) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, tickets)
	case FormatXLSX:
		return writeXLSX(w, tickets)
	default:
		return ErrUnsupportedFormat
	}
}

func writeCSV(w io.Writer, tickets []ticketdomain.AdminTicket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, t := range tickets {
		if err := cw.Write(row(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, tickets []ticketdomain.AdminTicket) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for r, t := range tickets {
		values := row(t)
		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			var v any = value
			if c == 0 {
				v = t.Number
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func row(t ticketdomain.AdminTicket) []string {
	status := statusLabels[t.Status]
	if status == "" {
		status = string(t.Status)
	}
	return []string{
		strconv.Itoa(t.Number),
		status,
		deref(t.BuyerFirstName),
		deref(t.BuyerLastName),
		deref(t.BuyerPhone),
		deref(t.BuyerEmail),
		deref(t.BuyerState),
		deref(t.PromoterCode),
		formatTime(t.ReservedAt),
		formatTime(t.PurchasedAt),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
