package domain

import (
	"net/url"
	"strconv"
	"strings"

	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
)

// WhatsAppMessage is the pre-filled chat text for a manual payment.
type WhatsAppMessage struct {
	TicketNumbers []int
	RaffleName    string
	Total         string
	PromoterCode  string
	// Fallback switches to the wording used after a failed online payment.
	Fallback bool
}

func (m WhatsAppMessage) Text() string {
	numbers := make([]string, 0, len(m.TicketNumbers))
	for _, n := range m.TicketNumbers {
		numbers = append(numbers, strconv.Itoa(n))
	}

	var b strings.Builder
	if m.Fallback {
		b.WriteString("¡Hola! Tuve problemas con el pago en línea. ")
		b.WriteString("Me gustaría confirmar la reserva de mis boletos: ")
	} else {
		b.WriteString("¡Hola! Me gustaría confirmar la reserva de mis boletos: ")
	}
	b.WriteString(strings.Join(numbers, ", "))
	if m.RaffleName != "" {
		b.WriteString("\n\nPara el sorteo: " + m.RaffleName)
	}
	if m.Total != "" {
		b.WriteString("\nTotal a pagar: " + m.Total)
	}
	if m.PromoterCode != "" {
		b.WriteString("\nCódigo de promotor: " + m.PromoterCode)
	}
	if m.Fallback {
		b.WriteString("\n\n¿Pueden ayudarme a completar el pago?")
	} else {
		b.WriteString("\n\n¿Cómo puedo realizar el pago?")
	}
	return b.String()
}

// WhatsAppLink builds a wa.me deep link. An empty message links to the chat only.
func WhatsAppLink(number, message string) string {
	link := "https://wa.me/" + buyerdomain.DigitsOnly(number)
	if message == "" {
		return link
	}
	return link + "?text=" + url.QueryEscape(message)
}
