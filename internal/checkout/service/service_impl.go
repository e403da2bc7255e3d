package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	"github.com/smallbiznis/sorteos/internal/checkout/domain"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	promoterdomain "github.com/smallbiznis/sorteos/internal/promoter/domain"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
	"github.com/smallbiznis/sorteos/internal/providers/pdf"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMaxAttempts = 3
	defaultCurrency    = "MXN"
	areaCodeMX         = "52"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	Promotions  *config.PromotionsHolder
	TicketRepo  ticketdomain.Repository
	RaffleRepo  raffledomain.Repository
	BuyerRepo   buyerdomain.Repository
	PromoterSvc promoterdomain.Service
	Receipts    pdf.Provider
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	promotions  *config.PromotionsHolder
	ticketRepo  ticketdomain.Repository
	raffleRepo  raffledomain.Repository
	buyerRepo   buyerdomain.Repository
	promoterSvc promoterdomain.Service
	receipts    pdf.Provider
	metrics     *metrics.Metrics
	dispatcher  *httpDispatcher
	methods     map[domain.Method]paymentMethod
	whatsapp    string
	baseURL     string
	maxAttempts int
}

func New(p Params) domain.Service {
	maxAttempts := p.Config.Payment.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	s := &Service{
		db:          p.DB,
		log:         p.Log.Named("checkout.service"),
		clock:       p.Clock,
		promotions:  p.Promotions,
		ticketRepo:  p.TicketRepo,
		raffleRepo:  p.RaffleRepo,
		buyerRepo:   p.BuyerRepo,
		promoterSvc: p.PromoterSvc,
		receipts:    p.Receipts,
		metrics:     p.Metrics,
		dispatcher:  newHTTPDispatcher(p.Config.Payment.PreferenceURL, p.Config.Payment.DispatchTimeout, p.Config.Payment.Sandbox),
		whatsapp:    p.Config.Raffle.WhatsAppNumber,
		baseURL:     strings.TrimRight(p.Config.PublicBaseURL, "/"),
		maxAttempts: maxAttempts,
	}
	s.methods = s.paymentMethods()
	return s
}

// selection is a validated set of reserved tickets of one raffle.
type selection struct {
	raffle  raffledomain.Raffle
	tickets []ticketdomain.Ticket
	numbers []int
	total   int64
	holder  *snowflake.ID
}

func (s selection) ids() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(s.tickets))
	for _, t := range s.tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

func (s *Service) Initiate(ctx context.Context, req domain.InitiateRequest) (domain.Checkout, error) {
	method, ok := s.methods[req.Method]
	if !ok {
		return domain.Checkout{}, domain.ErrInvalidMethod
	}
	sel, err := s.loadSelection(ctx, req.RaffleID, req.TicketIDs)
	if err != nil {
		return domain.Checkout{}, err
	}
	for _, ticket := range sel.tickets {
		if ticket.Status != ticketdomain.TicketStatusReserved || ticket.UserID == nil {
			return domain.Checkout{}, domain.ErrTicketsNotReserved
		}
		if sel.holder != nil && *sel.holder != *ticket.UserID {
			return domain.Checkout{}, domain.ErrTicketsNotReserved
		}
		holder := *ticket.UserID
		sel.holder = &holder
	}

	code := promoterdomain.NormalizeCode(req.PromoterCode)
	checkout := domain.Checkout{
		Method:        req.Method,
		RaffleID:      sel.raffle.ID,
		TicketNumbers: sel.numbers,
		Total:         sel.total,
		TotalLabel:    raffledomain.FormatMoney(sel.total, currencyOf(sel.raffle)),
		Bonus:         s.promotions.Get().BonusFor(len(sel.tickets)),
	}
	if code != "" {
		preview := s.promoterSvc.Preview(code, len(sel.tickets))
		checkout.Commission = &preview
	}
	return method.complete(ctx, sel, req, code, checkout)
}

// validatePayer requires both names, an email with "@" and at least ten
// phone digits.
func validatePayer(form buyerdomain.Form) error {
	var fields []buyerdomain.FieldError
	if form.FirstName == "" {
		fields = append(fields, buyerdomain.FieldError{Field: "first_name", Code: "required"})
	}
	if form.LastName == "" {
		fields = append(fields, buyerdomain.FieldError{Field: "last_name", Code: "required"})
	}
	if !strings.Contains(form.Email, "@") {
		fields = append(fields, buyerdomain.FieldError{Field: "email", Code: "invalid_email"})
	}
	if len(form.Phone) < buyerdomain.PhoneDigits {
		fields = append(fields, buyerdomain.FieldError{Field: "phone", Code: "invalid_phone"})
	}
	if len(fields) == 0 {
		return nil
	}
	return &buyerdomain.InvalidFormError{Fields: fields}
}

func buildPreferenceRequest(sel selection, form buyerdomain.Form, code string, clk clock.Clock) paymentdomain.PreferenceRequest {
	ids := sel.ids()
	currency := currencyOf(sel.raffle)
	return paymentdomain.PreferenceRequest{
		Items: []paymentdomain.PreferenceItem{{
			Title:       fmt.Sprintf("%s - %d boleto(s)", sel.raffle.Name, len(ids)),
			Description: "Boletos: " + joinInts(sel.numbers),
			Quantity:    1,
			UnitPrice:   paymentdomain.FromMinor(sel.total),
			CurrencyID:  currency,
		}},
		Payer: paymentdomain.Payer{
			Name:    form.FirstName,
			Surname: form.LastName,
			Email:   form.Email,
			Phone:   paymentdomain.Phone{AreaCode: areaCodeMX, Number: form.Phone},
		},
		ExternalReference: paymentdomain.BuildExternalReference(sel.raffle.ID, clk.Now(), ids),
		Metadata: paymentdomain.Metadata{
			RaffleID:      paymentdomain.FlexString(sel.raffle.ID.String()),
			TicketIDs:     paymentdomain.IDList(ticketdomain.IDStrings(ids)),
			TicketNumbers: sel.numbers,
			PromoterCode:  code,
			UserID:        holderString(sel.holder),
			UserPhone:     paymentdomain.FlexString(form.Phone),
			UserEmail:     form.Email,
		},
	}
}

func (s *Service) dispatchError(sel selection, code string, attempt int, err error) *domain.DispatchError {
	if attempt <= 0 {
		attempt = 1
	}
	out := &domain.DispatchError{
		Category: domain.CategoryNetwork,
		Message:  networkMessage,
		Attempt:  attempt,
		CanRetry: attempt < s.maxAttempts,
		Fallback: s.whatsAppLink(sel, code, true),
		Err:      err,
	}
	var f *failure
	if errors.As(err, &f) {
		out.Category = f.category
		out.Message = f.message
		out.StatusCode = f.status
	}
	return out
}

func (s *Service) whatsAppLink(sel selection, code string, fallback bool) string {
	msg := domain.WhatsAppMessage{
		TicketNumbers: sel.numbers,
		RaffleName:    sel.raffle.Name,
		Total:         raffledomain.FormatMoney(sel.total, currencyOf(sel.raffle)),
		PromoterCode:  code,
		Fallback:      fallback,
	}
	return domain.WhatsAppLink(s.whatsapp, msg.Text())
}

// Receipt renders the PDF receipt of tickets held or bought by one buyer.
func (s *Service) Receipt(ctx context.Context, req domain.ReceiptRequest) (domain.ReceiptFile, error) {
	method := req.Method
	if method == "" {
		method = domain.MethodProvider
	}
	if !method.Valid() {
		return domain.ReceiptFile{}, domain.ErrInvalidMethod
	}

	sel, err := s.loadSelection(ctx, "", req.TicketIDs)
	if err != nil {
		return domain.ReceiptFile{}, err
	}
	var buyerID *snowflake.ID
	var code string
	for _, ticket := range sel.tickets {
		if ticket.Status == ticketdomain.TicketStatusAvailable || ticket.UserID == nil {
			return domain.ReceiptFile{}, domain.ErrReceiptUnavailable
		}
		if buyerID != nil && *buyerID != *ticket.UserID {
			return domain.ReceiptFile{}, domain.ErrReceiptUnavailable
		}
		buyerID = ticket.UserID
		if ticket.PromoterCode != nil && code == "" {
			code = *ticket.PromoterCode
		}
	}

	buyer, err := s.buyerRepo.FindByID(ctx, s.db, *buyerID)
	if err != nil {
		return domain.ReceiptFile{}, err
	}
	if buyer == nil {
		return domain.ReceiptFile{}, domain.ErrReceiptUnavailable
	}

	data := pdf.ReceiptData{
		Folio:         sel.raffle.ID.String() + "-" + strconv.Itoa(sel.numbers[0]),
		RaffleName:    sel.raffle.Name,
		DrawDate:      sel.raffle.DrawDate,
		IssuedAt:      s.clock.Now(),
		BuyerName:     buyer.FullName(),
		BuyerPhone:    buyerdomain.MaskPhone(buyer.Phone),
		BuyerEmail:    buyer.Email,
		BuyerState:    buyer.State,
		TicketNumbers: sel.numbers,
		Total:         raffledomain.FormatMoney(sel.total, currencyOf(sel.raffle)),
		PaymentMethod: method.Label(),
		PromoterCode:  code,
	}
	if method == domain.MethodProvider {
		data.BonusNote = s.promotions.Get().BonusFor(len(sel.tickets))
	}
	if s.baseURL != "" {
		data.VerifyURL = s.baseURL + "/verificar?raffle_id=" + sel.raffle.ID.String() + "&number=" + strconv.Itoa(sel.numbers[0])
	}

	body, err := s.receipts.GenerateReceipt(ctx, data)
	if err != nil {
		return domain.ReceiptFile{}, err
	}
	return domain.ReceiptFile{
		Name: "boletos-" + data.Folio + ".pdf",
		Body: body,
	}, nil
}

// loadSelection loads tickets and their raffle. raffleID may be empty when
// the caller only knows the tickets.
func (s *Service) loadSelection(ctx context.Context, raffleID string, ticketIDs []string) (selection, error) {
	ids, err := ticketdomain.ParseIDs(ticketIDs)
	if err != nil {
		return selection{}, err
	}
	items, err := s.ticketRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return selection{}, err
	}
	if len(items) != len(ids) {
		return selection{}, domain.ErrTicketsNotFound
	}

	var rid snowflake.ID
	if strings.TrimSpace(raffleID) != "" {
		rid, err = snowflake.ParseString(strings.TrimSpace(raffleID))
		if err != nil {
			return selection{}, domain.ErrInvalidRaffle
		}
	} else {
		rid = items[0].RaffleID
	}

	raffle, err := s.raffleRepo.FindByID(ctx, s.db, rid)
	if err != nil {
		return selection{}, err
	}
	if raffle == nil {
		return selection{}, domain.ErrInvalidRaffle
	}

	sel := selection{raffle: *raffle}
	for _, item := range items {
		if item.RaffleID != raffle.ID {
			return selection{}, domain.ErrTicketRaffleMismatch
		}
		sel.tickets = append(sel.tickets, *item)
	}
	sort.Slice(sel.tickets, func(i, j int) bool { return sel.tickets[i].Number < sel.tickets[j].Number })
	for _, t := range sel.tickets {
		sel.numbers = append(sel.numbers, t.Number)
	}
	sel.total = int64(len(sel.tickets)) * raffle.Price
	return sel, nil
}

func holderString(id *snowflake.ID) paymentdomain.FlexString {
	if id == nil {
		return ""
	}
	return paymentdomain.FlexString(id.String())
}

func currencyOf(r raffledomain.Raffle) string {
	if strings.TrimSpace(r.Currency) == "" {
		return defaultCurrency
	}
	return r.Currency
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
