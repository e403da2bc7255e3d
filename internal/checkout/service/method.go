package service

import (
	"context"

	"github.com/smallbiznis/sorteos/internal/checkout/domain"
	"go.uber.org/zap"
)

// paymentMethod finishes a checkout whose selection is already validated.
type paymentMethod interface {
	complete(ctx context.Context, sel selection, req domain.InitiateRequest, code string, checkout domain.Checkout) (domain.Checkout, error)
}

func (s *Service) paymentMethods() map[domain.Method]paymentMethod {
	return map[domain.Method]paymentMethod{
		domain.MethodProvider: providerMethod{s: s},
		domain.MethodManual:   manualMethod{s: s},
	}
}

// manualMethod hands the buyer a WhatsApp message for transfer or cash.
type manualMethod struct {
	s *Service
}

func (m manualMethod) complete(ctx context.Context, sel selection, _ domain.InitiateRequest, code string, checkout domain.Checkout) (domain.Checkout, error) {
	checkout.WhatsAppURL = m.s.whatsAppLink(sel, code, false)
	m.s.metrics.RecordCheckoutAttempt(ctx, string(domain.MethodManual), "success")
	m.s.log.Info("manual checkout",
		zap.String("raffle_id", sel.raffle.ID.String()),
		zap.Int("tickets", len(sel.tickets)),
	)
	return checkout, nil
}

// providerMethod creates a payment preference and returns its redirect.
type providerMethod struct {
	s *Service
}

func (m providerMethod) complete(ctx context.Context, sel selection, req domain.InitiateRequest, code string, checkout domain.Checkout) (domain.Checkout, error) {
	form := req.Buyer.Normalize()
	if err := validatePayer(form); err != nil {
		return domain.Checkout{}, err
	}

	prefReq := buildPreferenceRequest(sel, form, code, m.s.clock)
	pref, redirect, err := m.s.dispatcher.Dispatch(ctx, prefReq)
	if err != nil {
		dispatchErr := m.s.dispatchError(sel, code, req.Attempt, err)
		m.s.metrics.RecordCheckoutAttempt(ctx, string(domain.MethodProvider), string(dispatchErr.Category))
		m.s.log.Warn("provider checkout failed",
			zap.String("raffle_id", sel.raffle.ID.String()),
			zap.String("category", string(dispatchErr.Category)),
			zap.Int("attempt", dispatchErr.Attempt),
			zap.Error(err),
		)
		return domain.Checkout{}, dispatchErr
	}

	m.s.metrics.RecordCheckoutAttempt(ctx, string(domain.MethodProvider), "success")
	checkout.RedirectURL = redirect
	checkout.PreferenceID = pref.ID
	checkout.ExternalReference = nonEmpty(pref.ExternalReference, prefReq.ExternalReference)
	return checkout, nil
}
