package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/skip2/go-qrcode"
)

const (
	defaultTimezone = "America/Mazatlan"
	qrSize          = 256
	dateLayout      = "02/01/2006 15:04"
)

var ErrNoTickets = errors.New("receipt_without_tickets")

// ReceiptData is everything printed on a ticket receipt. Amounts are
// already formatted for display.
type ReceiptData struct {
	Folio         string
	RaffleName    string
	DrawDate      time.Time
	IssuedAt      time.Time
	BuyerName     string
	BuyerPhone    string
	BuyerEmail    string
	BuyerState    string
	TicketNumbers []int
	Total         string
	PaymentMethod string
	BonusNote     string
	PromoterCode  string
	VerifyURL     string
}

type PDFProvider struct {
	loc *time.Location
}

// New returns a receipt renderer printing dates in timezone. Unknown zones
// fall back to America/Mazatlan.
func New(timezone string) Provider {
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil || strings.TrimSpace(timezone) == "" {
		loc, err = time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.FixedZone("MST", -7*60*60)
		}
	}
	return &PDFProvider{loc: loc}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if len(receipt.TicketNumbers) == 0 {
		return nil, ErrNoTickets
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Comprobante de boletos", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Folio "+receipt.Folio, props.Text{
			Size:  10,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(24,
		col.New(7).Add(
			text.New(receipt.RaffleName, props.Text{Size: 13, Style: fontstyle.Bold}),
			text.New("Fecha del sorteo: "+p.format(receipt.DrawDate), props.Text{Top: 7}),
			text.New("Emitido: "+p.format(receipt.IssuedAt), props.Text{Top: 12}),
		),
		col.New(5).Add(
			text.New("Comprador", props.Text{Style: fontstyle.Bold}),
			text.New(receipt.BuyerName, props.Text{Top: 5}),
			text.New(receipt.BuyerPhone, props.Text{Top: 10}),
			text.New(receipt.BuyerEmail, props.Text{Top: 15}),
			text.New(receipt.BuyerState, props.Text{Top: 20}),
		),
	)

	m.AddRow(10,
		text.NewCol(12, "Boletos ("+strconv.Itoa(len(receipt.TicketNumbers))+")", props.Text{
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)
	for _, line := range chunkNumbers(receipt.TicketNumbers, 10) {
		m.AddRow(7, text.NewCol(12, line, props.Text{Size: 10}))
	}

	m.AddRow(12,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Top: 4}),
		text.NewCol(2, receipt.Total, props.Text{Style: fontstyle.Bold, Align: align.Right, Top: 4}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Método", props.Text{Size: 9}),
		text.NewCol(2, receipt.PaymentMethod, props.Text{Size: 9, Align: align.Right}),
	)
	if receipt.PromoterCode != "" {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, "Promotor", props.Text{Size: 9}),
			text.NewCol(2, receipt.PromoterCode, props.Text{Size: 9, Align: align.Right}),
		)
	}
	if receipt.BonusNote != "" {
		m.AddRow(12,
			text.NewCol(12, receipt.BonusNote, props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Align: align.Center,
				Top:   4,
			}),
		)
	}

	if receipt.VerifyURL != "" {
		qr, err := qrcode.Encode(receipt.VerifyURL, qrcode.Medium, qrSize)
		if err != nil {
			return nil, err
		}
		m.AddRow(45,
			col.New(4),
			image.NewFromBytesCol(4, qr, extension.Png, props.Rect{Center: true, Percent: 90}),
			col.New(4),
		)
		m.AddRow(8,
			text.NewCol(12, "Verifica tus boletos: "+receipt.VerifyURL, props.Text{Size: 8, Align: align.Center}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func (p *PDFProvider) format(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(p.loc).Format(dateLayout)
}

func chunkNumbers(numbers []int, perLine int) []string {
	var lines []string
	for start := 0; start < len(numbers); start += perLine {
		end := start + perLine
		if end > len(numbers) {
			end = len(numbers)
		}
		parts := make([]string, 0, end-start)
		for _, n := range numbers[start:end] {
			parts = append(parts, strconv.Itoa(n))
		}
		lines = append(lines, strings.Join(parts, "  "))
	}
	return lines
}
