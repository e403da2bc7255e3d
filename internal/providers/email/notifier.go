package email

import (
	"context"
	"strings"

	"github.com/smallbiznis/sorteos/internal/config"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
)

const templatePaymentApproved = "payment_approved"

type approvedEmail struct {
	PaymentID     string
	TicketNumbers []int
	Total         string
	PromoterCode  string
	VerifyURL     string
}

func (approvedEmail) TemplateName() string { return templatePaymentApproved }

func (approvedEmail) Subject() string { return "Pago aprobado: tus boletos están confirmados" }

// PaymentNotifier emails the buyer once their payment is approved.
type PaymentNotifier struct {
	provider Provider
	baseURL  string
	currency string
}

func NewPaymentNotifier(provider Provider, cfg config.Config) *PaymentNotifier {
	return &PaymentNotifier{
		provider: provider,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		currency: cfg.Raffle.Currency,
	}
}

func (n *PaymentNotifier) Name() string { return "email" }

func (n *PaymentNotifier) NotifyApproved(ctx context.Context, payment paymentdomain.ApprovedPayment) error {
	to := strings.TrimSpace(payment.BuyerEmail)
	if to == "" || !strings.Contains(to, "@") {
		return nil
	}

	data := approvedEmail{
		PaymentID:     payment.PaymentID,
		TicketNumbers: payment.TicketNumbers,
		Total:         raffledomain.FormatMoney(payment.Amount, n.currency),
		PromoterCode:  payment.PromoterCode,
	}
	if n.baseURL != "" && payment.RaffleID != "" {
		data.VerifyURL = n.baseURL + "/verificar?raffle_id=" + payment.RaffleID
	}
	return n.provider.SendTemplate(ctx, []string{to}, data)
}
