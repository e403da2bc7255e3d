package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() []ticketdomain.AdminTicket {
	name, last, phone, code := "Ana", "López", "6681234567", "RIO"
	purchased := time.Date(2025, 3, 2, 18, 30, 0, 0, time.UTC)
	return []ticketdomain.AdminTicket{
		{
			Ticket: ticketdomain.Ticket{
				Number:       1001,
				Status:       ticketdomain.TicketStatusPurchased,
				PromoterCode: &code,
				ReservedAt:   &purchased,
				PurchasedAt:  &purchased,
			},
			BuyerFirstName: &name,
			BuyerLastName:  &last,
			BuyerPhone:     &phone,
		},
		{Ticket: ticketdomain.Ticket{Number: 1002, Status: ticketdomain.TicketStatusAvailable}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sample()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, headers, records[0])
	assert.Equal(t, []string{"1001", "Vendido", "Ana", "López", "6681234567", "", "", "RIO", "2025-03-02 18:30", "2025-03-02 18:30"}, records[1])
	assert.Equal(t, "Disponible", records[2][1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Número", rows[0][0])
	assert.Equal(t, "1001", rows[1][0])
	assert.Equal(t, "Ana", rows[1][2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, "boletos-9.xlsx", f.FileName("9"))

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
