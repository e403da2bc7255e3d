package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/sorteos/internal/config"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
)

// SaleNotifier tells the admin chat about every approved payment.
type SaleNotifier struct {
	provider Provider
	currency string
}

func NewSaleNotifier(provider Provider, cfg config.Config) *SaleNotifier {
	return &SaleNotifier{provider: provider, currency: cfg.Raffle.Currency}
}

func (n *SaleNotifier) Name() string { return "telegram" }

func (n *SaleNotifier) NotifyApproved(ctx context.Context, payment paymentdomain.ApprovedPayment) error {
	return n.provider.SendMessage(ctx, saleMessage(payment, n.currency))
}

func saleMessage(payment paymentdomain.ApprovedPayment, currency string) string {
	numbers := make([]string, 0, len(payment.TicketNumbers))
	for _, number := range payment.TicketNumbers {
		numbers = append(numbers, strconv.Itoa(number))
	}

	var b strings.Builder
	b.WriteString("✅ Pago aprobado\n")
	fmt.Fprintf(&b, "Boletos (%d): %s\n", len(numbers), strings.Join(numbers, ", "))
	fmt.Fprintf(&b, "Total: %s\n", raffledomain.FormatMoney(payment.Amount, currency))
	if payment.PromoterCode != "" {
		fmt.Fprintf(&b, "Promotor: %s\n", payment.PromoterCode)
	}
	if payment.BuyerPhone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", payment.BuyerPhone)
	}
	fmt.Fprintf(&b, "Pago: %s", payment.PaymentID)
	return b.String()
}
