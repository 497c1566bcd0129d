package usecase

import (
	"context"
	"errors"
	"fmt"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/dto/request"
	"smart-parking/internal/dto/response"
	"smart-parking/internal/payment"
	"smart-parking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	InitiatePayment(ctx context.Context, userID uuid.UUID, req *request.InitiatePaymentRequest) (*response.PaymentInitiationResponse, error)
	HandleCallback(ctx context.Context, req *request.PaymentCallbackRequest) (*response.PaymentCallbackResponse, error)
}

const paymentStatusPending = "pending"

type paymentService struct {
	repo     *repository.Repository
	booking  BookingService
	gateways payment.Gateways
	clock    Clock
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, booking BookingService, deps Dependencies, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		booking:  booking,
		gateways: deps.Gateways,
		clock:    deps.Clock,
		log:      log.With(zap.String("service", "payment")),
	}
}

// InitiatePayment opens a payment attempt for a pending booking and returns the gateway
// redirect. Gateways that settle synchronously are resolved before returning.
func (s *paymentService) InitiatePayment(ctx context.Context, userID uuid.UUID, req *request.InitiatePaymentRequest) (*response.PaymentInitiationResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, invalidField("booking_id", "Must be a valid UUID")
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("find booking", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, ErrForbidden
	}
	if booking.State() != entity.StatePending {
		return nil, fmt.Errorf("%w: cannot pay for %s booking", ErrInvalidTransition, booking.State())
	}

	now := s.clock.Now()
	if now.After(booking.PaymentDeadline) {
		return nil, ErrPaymentWindowClosed
	}

	method := entity.PaymentMethod(req.Method)
	gateway, err := s.gateways.For(method)
	if err != nil {
		return nil, invalidField("method", err.Error())
	}

	token := utils.GeneratePaymentToken()
	initiation, err := gateway.Initiate(ctx, payment.Charge{
		Token:       token,
		BookingCode: booking.BookingCode,
		Amount:      booking.TotalAmount,
		ProductName: "Parking " + booking.BookingCode,
	})
	if err != nil {
		s.log.Error("Gateway initiation failed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("method", string(method)),
		)
		return nil, fmt.Errorf("initiate %s payment: %w", method, err)
	}

	attempt := &entity.PaymentAttempt{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Token:      token,
		BookingID:  booking.ID,
		UserID:     userID,
		Method:     method,
		Amount:     booking.TotalAmount,
		Status:     entity.PaymentAttemptInitiated,
	}
	if err := s.repo.Payment.Create(ctx, attempt); err != nil {
		return nil, storeError("create payment attempt", err)
	}

	s.log.Info("Payment initiated",
		zap.String("booking_id", booking.ID.String()),
		zap.String("token", token),
		zap.String("method", string(method)),
		zap.Float64("amount", attempt.Amount),
	)

	resp := &response.PaymentInitiationResponse{
		Token:       token,
		Method:      method,
		Status:      paymentStatusPending,
		RedirectURL: initiation.RedirectURL,
		HTTPMethod:  initiation.HTTPMethod,
		Fields:      initiation.Fields,
	}

	if initiation.Outcome != nil {
		settled, err := s.resolve(ctx, attempt, *initiation.Outcome)
		if err != nil {
			return nil, err
		}
		resp.Status = settled.Status
		resp.Booking = settled.Booking
	}

	return resp, nil
}

// HandleCallback applies the gateway verdict for a payment token. Each attempt resolves
// once; repeated callbacks report the stored result.
func (s *paymentService) HandleCallback(ctx context.Context, req *request.PaymentCallbackRequest) (*response.PaymentCallbackResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Payment.FindByToken(ctx, req.Token)
	if err != nil {
		return nil, storeError("find payment attempt", err)
	}
	if attempt == nil {
		return nil, ErrPaymentNotFound
	}

	if req.Amount != nil && utils.RoundMoney(*req.Amount) != utils.RoundMoney(attempt.Amount) {
		s.log.Warn("Payment callback amount mismatch",
			zap.String("token", attempt.Token),
			zap.Float64("expected", attempt.Amount),
			zap.Float64("got", *req.Amount),
		)
		return nil, invalidField("amount", "Does not match the charged amount")
	}

	outcome := payment.Outcome{Success: req.Status == "success"}
	if req.GatewayRef != nil {
		outcome.GatewayRef = *req.GatewayRef
	}
	if req.Reason != nil {
		outcome.Reason = *req.Reason
	}

	return s.resolve(ctx, attempt, outcome)
}

func (s *paymentService) resolve(ctx context.Context, attempt *entity.PaymentAttempt, outcome payment.Outcome) (*response.PaymentCallbackResponse, error) {
	status := entity.PaymentAttemptFailed
	if outcome.Success {
		status = entity.PaymentAttemptSucceeded
		if outcome.GatewayRef == "" {
			outcome.GatewayRef = attempt.Token
		}
	}

	resolved, err := s.repo.Payment.Resolve(ctx, attempt.Token, status, optional(outcome.GatewayRef), optional(outcome.Reason), s.clock.Now())
	if err != nil {
		return nil, storeError("resolve payment attempt", err)
	}

	if !resolved {
		// resolved by an earlier callback, replay its result
		latest, err := s.repo.Payment.FindByToken(ctx, attempt.Token)
		if err != nil {
			return nil, storeError("find payment attempt", err)
		}
		if latest == nil {
			return nil, ErrPaymentNotFound
		}
		status = latest.Status
		if latest.GatewayRef != nil {
			outcome.GatewayRef = *latest.GatewayRef
		}
	} else {
		paymentOutcomes.WithLabelValues(string(attempt.Method), string(status)).Inc()
	}

	result := &response.PaymentCallbackResponse{Token: attempt.Token, Status: string(status)}

	if status != entity.PaymentAttemptSucceeded {
		s.log.Info("Payment failed, booking stays pending",
			zap.String("booking_id", attempt.BookingID.String()),
			zap.String("token", attempt.Token),
			zap.String("reason", outcome.Reason),
		)
		return result, nil
	}

	// ConfirmPayment is idempotent, so a replayed success also repairs a confirm that
	// failed after the attempt was resolved.
	booking, err := s.booking.ConfirmPayment(ctx, attempt.BookingID, outcome.GatewayRef, attempt.Method)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Warn("Payment succeeded for a booking that is no longer payable",
				zap.Error(err),
				zap.String("booking_id", attempt.BookingID.String()),
				zap.String("token", attempt.Token),
			)
		}
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	result.Booking = &resp
	return result, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
