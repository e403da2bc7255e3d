package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/observability/metrics"
	"github.com/smallbiznis/sorteos/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	reservationdomain "github.com/smallbiznis/sorteos/internal/reservation/domain"
	reservationservice "github.com/smallbiznis/sorteos/internal/reservation/service"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const notificationTypePayment = "payment"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Adapters    *adapters.Registry
	Repo        paymentdomain.Repository
	Reservation reservationdomain.Service
	Notifiers   []paymentdomain.Notifier `group:"payment.notifiers"`
	Metrics     *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	adapters    *adapters.Registry
	repo        paymentdomain.Repository
	reservation reservationdomain.Service
	notifiers   []paymentdomain.Notifier
	metrics     *metrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookService {
	notifiers := make([]paymentdomain.Notifier, 0, len(p.Notifiers))
	for _, n := range p.Notifiers {
		if n != nil {
			notifiers = append(notifiers, n)
		}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.webhook"),
		genID:       p.GenID,
		clock:       p.Clock,
		adapters:    p.Adapters,
		repo:        p.Repo,
		reservation: p.Reservation,
		notifiers:   notifiers,
		metrics:     p.Metrics,
	}
}

// Handle processes one provider notification. The payment is always re-read
// from the provider; the notification body is never trusted for status.
func (s *Service) Handle(ctx context.Context, provider string, payload []byte, query url.Values, headers http.Header) (paymentdomain.WebhookResult, error) {
	gateway, err := s.adapters.Gateway(provider)
	if err != nil {
		return paymentdomain.WebhookResult{}, err
	}

	notification, err := gateway.ParseNotification(payload, query)
	if err != nil {
		return paymentdomain.WebhookResult{}, err
	}
	if err := gateway.Verify(ctx, notification, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", gateway.Provider()), zap.Error(err))
		return paymentdomain.WebhookResult{}, err
	}

	if notification.Type != notificationTypePayment {
		s.log.Info("webhook ignored",
			zap.String("provider", gateway.Provider()),
			zap.String("type", notification.Type),
		)
		s.metrics.RecordPaymentEvent(ctx, gateway.Provider(), "ignored")
		return paymentdomain.WebhookResult{Ignored: true}, nil
	}
	if strings.TrimSpace(notification.ResourceID) == "" {
		return paymentdomain.WebhookResult{}, paymentdomain.ErrInvalidPayload
	}

	payment, err := gateway.GetPayment(ctx, notification.ResourceID)
	if err != nil {
		s.log.Error("fetch payment failed",
			zap.String("payment_id", notification.ResourceID),
			zap.Error(err),
		)
		return paymentdomain.WebhookResult{}, err
	}

	if err := s.recordPayment(ctx, gateway.Provider(), payment, notification); err != nil {
		s.log.Error("upsert payment log failed", zap.String("payment_id", payment.ID), zap.Error(err))
		return paymentdomain.WebhookResult{}, err
	}

	result := paymentdomain.WebhookResult{
		Processed: true,
		PaymentID: payment.ID,
		Status:    payment.Status,
	}
	ticketIDs := ticketIDsFor(payment)
	logger := s.log.With(
		zap.String("payment_id", payment.ID),
		zap.String("status", payment.Status),
		zap.Int("tickets", len(ticketIDs)),
	)
	s.metrics.RecordPaymentEvent(ctx, gateway.Provider(), strings.ToLower(payment.Status))

	switch strings.ToLower(payment.Status) {
	case paymentdomain.StatusApproved:
		if len(ticketIDs) == 0 {
			logger.Warn("approved payment without tickets")
			return result, nil
		}
		purchase, err := s.reservation.Purchase(ctx, reservationdomain.PurchaseRequest{
			TicketIDs:    ticketIDs,
			At:           s.clock.Now(),
			Source:       reservationservice.SourceWebhook,
			Holder:       holderOf(payment.Metadata),
			ConfirmSales: true,
			PromoterCode: payment.Metadata.PromoterCode,
		})
		if err != nil {
			logger.Error("purchase tickets failed", zap.Error(err))
			return paymentdomain.WebhookResult{}, err
		}
		for _, warning := range purchase.Warnings {
			logger.Warn("promoter sale not confirmed",
				zap.String("ticket_id", warning.TicketID.String()),
				zap.String("code", warning.Code),
			)
		}
		logger.Info("payment approved",
			zap.Int("purchased", len(purchase.Purchased)),
			zap.Int("already_purchased", len(purchase.AlreadyPurchased)),
			zap.Int("skipped", len(purchase.Skipped)),
		)
		if len(purchase.Skipped) > 0 {
			logger.Error("paid tickets no longer held by payer",
				zap.Strings("skipped", ticketdomain.IDStrings(purchase.Skipped)),
			)
		}
		if len(purchase.Purchased) > 0 {
			s.notify(ctx, approvedPayment(payment, ticketIDs, purchase, s.clock))
		}

	case paymentdomain.StatusRejected, paymentdomain.StatusCancelled:
		if len(ticketIDs) == 0 {
			return result, nil
		}
		released, err := s.reservation.Release(ctx, reservationdomain.ReleaseRequest{
			TicketIDs:     ticketIDs,
			Holder:        holderOf(payment.Metadata),
			ClearPromoter: true,
			Source:        reservationservice.SourceWebhook,
		})
		if err != nil {
			logger.Error("release tickets failed", zap.Error(err))
			return paymentdomain.WebhookResult{}, err
		}
		logger.Info("payment failed, tickets released", zap.Int("released", len(released.Released)))

	case paymentdomain.StatusPending, paymentdomain.StatusInProcess:
		logger.Info("payment pending")

	default:
		logger.Info("payment status not handled")
	}

	return result, nil
}

// holderOf names the payer recorded when the preference was created.
func holderOf(m paymentdomain.Metadata) reservationdomain.Holder {
	return reservationdomain.Holder{
		BuyerID: strings.TrimSpace(string(m.UserID)),
		Phone:   strings.TrimSpace(string(m.UserPhone)),
	}
}

func (s *Service) recordPayment(ctx context.Context, provider string, payment paymentdomain.PaymentDetail, n paymentdomain.Notification) error {
	now := s.clock.Now().UTC()
	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}
	webhookData := []byte(n.Raw)
	if !json.Valid(webhookData) {
		webhookData = []byte("{}")
	}

	paymentID := payment.ID
	log := paymentdomain.PaymentLog{
		ID:          s.genID.Generate(),
		Provider:    provider,
		PaymentID:   &paymentID,
		Status:      strings.ToLower(payment.Status),
		Amount:      payment.Amount,
		Metadata:    datatypes.JSON(metadata),
		WebhookData: datatypes.JSON(webhookData),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if v := strings.TrimSpace(payment.PreferenceID); v != "" {
		log.PreferenceID = &v
	}
	if v := strings.TrimSpace(payment.ExternalReference); v != "" {
		log.ExternalReference = &v
	}
	if v := strings.TrimSpace(payment.StatusDetail); v != "" {
		log.StatusDetail = &v
	}
	return s.repo.UpsertByPaymentID(ctx, s.db, &log)
}

func (s *Service) notify(ctx context.Context, payment paymentdomain.ApprovedPayment) {
	for _, notifier := range s.notifiers {
		if err := notifier.NotifyApproved(ctx, payment); err != nil {
			s.log.Warn("payment notification failed",
				zap.String("notifier", notifier.Name()),
				zap.String("payment_id", payment.PaymentID),
				zap.Error(err),
			)
		}
	}
}

// ticketIDsFor prefers metadata ids and falls back to the external reference.
func ticketIDsFor(payment paymentdomain.PaymentDetail) []string {
	if ids := []string(payment.Metadata.TicketIDs); len(ids) > 0 {
		return ids
	}
	_, ids, ok := paymentdomain.ParseExternalReference(payment.ExternalReference)
	if !ok {
		return nil
	}
	return ids
}

func approvedPayment(payment paymentdomain.PaymentDetail, ticketIDs []string, purchase reservationdomain.PurchaseResult, clk clock.Clock) paymentdomain.ApprovedPayment {
	numbers := make([]int, 0, len(purchase.Purchased))
	for _, ticket := range purchase.Purchased {
		numbers = append(numbers, ticket.Number)
	}
	raffleID := string(payment.Metadata.RaffleID)
	if raffleID == "" {
		raffleID, _, _ = paymentdomain.ParseExternalReference(payment.ExternalReference)
	}
	return paymentdomain.ApprovedPayment{
		PaymentID:         payment.ID,
		ExternalReference: payment.ExternalReference,
		Amount:            payment.Amount,
		RaffleID:          raffleID,
		TicketIDs:         ticketIDs,
		TicketNumbers:     numbers,
		PromoterCode:      payment.Metadata.PromoterCode,
		BuyerEmail:        payment.Metadata.UserEmail,
		BuyerPhone:        string(payment.Metadata.UserPhone),
		ApprovedAt:        clk.Now().UTC(),
	}
}
