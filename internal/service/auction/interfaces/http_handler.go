// internal/service/auction/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"gavel/internal/pkg/logger"
	"gavel/internal/service/auction/application"
	"gavel/internal/service/auction/domain"
)

const serviceName = "auction-service"

// AuctionHandler 封装了拍卖服务的 HTTP 处理器
type AuctionHandler struct {
	service *application.AuctionService
}

// NewAuctionHandler 创建一个新的 HTTP 处理器实例
func NewAuctionHandler(service *application.AuctionService) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *AuctionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /auctions", h.createAuction)
	mux.HandleFunc("GET /auctions/{id}", h.getAuction)
	mux.HandleFunc("POST /auctions/{id}/start", h.transition(func(r *http.Request, id uuid.UUID) error {
		return h.service.StartAuction(r.Context(), id)
	}))
	mux.HandleFunc("POST /auctions/{id}/pause", h.transition(func(r *http.Request, id uuid.UUID) error {
		return h.service.PauseAuction(r.Context(), id)
	}))
	mux.HandleFunc("POST /auctions/{id}/unpause", h.transition(func(r *http.Request, id uuid.UUID) error {
		return h.service.UnpauseAuction(r.Context(), id)
	}))
	mux.HandleFunc("POST /auctions/{id}/cancel", h.transition(func(r *http.Request, id uuid.UUID) error {
		return h.service.CancelAuction(r.Context(), id)
	}))
	mux.HandleFunc("POST /auctions/{id}/finish", h.finishAuction)
	mux.HandleFunc("POST /auctions/{id}/bids", h.placeBid)
}

type moneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createAuctionRequest struct {
	Kind             string    `json:"kind"`
	CreatorID        string    `json:"creatorId"`
	Title            string    `json:"title"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	StopwatchSeconds int       `json:"stopwatchSeconds"`
	InitialBidAmount moneyDTO  `json:"initialBidAmount"`
}

type auctionResponse struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	CreatorID        string     `json:"creatorId"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
	StopwatchSeconds int        `json:"stopwatchSeconds,omitempty"`
	InitialBidAmount moneyDTO   `json:"initialBidAmount"`
	MinimalBidAmount moneyDTO   `json:"minimalBidAmount"`
	WinnerID         *string    `json:"winnerId,omitempty"`
}

func toAuctionResponse(a *domain.Auction) auctionResponse {
	resp := auctionResponse{
		ID:               a.ID.String(),
		Kind:             string(a.Kind),
		CreatorID:        a.CreatorID.String(),
		Title:            a.Title,
		Status:           string(a.Status),
		StartedAt:        a.StartedAt,
		StopwatchSeconds: a.StopwatchSeconds,
		InitialBidAmount: moneyDTO{a.InitialBidAmount.Amount, a.InitialBidAmount.Currency},
		MinimalBidAmount: moneyDTO{a.MinimalBidAmount.Amount, a.MinimalBidAmount.Currency},
	}
	if !a.FinishedAt.IsZero() {
		t := a.FinishedAt
		resp.FinishedAt = &t
	}
	if a.WinnerID != nil {
		s := a.WinnerID.String()
		resp.WinnerID = &s
	}
	return resp
}

func (h *AuctionHandler) createAuction(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateAuction")
	defer span.End()

	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	creatorID, err := uuid.Parse(req.CreatorID)
	if err != nil {
		writeError(w, domain.NewValidationError("creatorId", "is not a valid UUID"))
		return
	}

	auction, err := h.service.CreateAuction(ctx, application.CreateAuctionRequest{
		Kind:             domain.Kind(req.Kind),
		CreatorID:        creatorID,
		Title:            req.Title,
		StartedAt:        req.StartedAt,
		FinishedAt:       req.FinishedAt,
		StopwatchSeconds: req.StopwatchSeconds,
		InitialBidAmount: domain.NewMoney(req.InitialBidAmount.Amount, req.InitialBidAmount.Currency),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(auction))
}

func (h *AuctionHandler) getAuction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domain.NewValidationError("id", "is not a valid UUID"))
		return
	}
	auction, err := h.service.GetAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(auction))
}

// transition 是 start/pause/unpause/cancel 这类无请求体流转的通用骨架。
func (h *AuctionHandler) transition(apply func(r *http.Request, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, domain.NewValidationError("id", "is not a valid UUID"))
			return
		}
		if err := apply(r, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type finishRequest struct {
	Kind string `json:"kind,omitempty"` // 指定时要求类型匹配
}

func (h *AuctionHandler) finishAuction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domain.NewValidationError("id", "is not a valid UUID"))
		return
	}
	var req finishRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // 空请求体走通用结束

	if req.Kind != "" {
		err = h.service.FinishAuctionOfKind(r.Context(), id, domain.Kind(req.Kind))
	} else {
		err = h.service.FinishAuction(r.Context(), id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type placeBidRequest struct {
	BidderID string   `json:"bidderId"`
	Kind     string   `json:"kind"`
	Amount   moneyDTO `json:"amount"`
}

type bidResponse struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    moneyDTO  `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *AuctionHandler) placeBid(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.PlaceBid")
	defer span.End()

	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domain.NewValidationError("id", "is not a valid UUID"))
		return
	}
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	bidderID, err := uuid.Parse(req.BidderID)
	if err != nil {
		writeError(w, domain.NewValidationError("bidderId", "is not a valid UUID"))
		return
	}

	bid, err := h.service.PlaceBid(ctx, application.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Kind:      domain.Kind(req.Kind),
		Amount:    domain.NewMoney(req.Amount.Amount, req.Amount.Currency),
	})
	if err != nil {
		bidsRejected.WithLabelValues(rejectionReason(err)).Inc()
		writeError(w, err)
		return
	}
	bidsAccepted.WithLabelValues(req.Kind).Inc()
	writeJSON(w, http.StatusCreated, bidResponse{
		ID:        bid.ID.String(),
		AuctionID: bid.AuctionID.String(),
		BidderID:  bid.BidderID.String(),
		Amount:    moneyDTO{bid.Amount.Amount, bid.Amount.Currency},
		CreatedAt: bid.CreatedAt,
	})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	// BidTooLow 时携带下一口必须达到的最低金额
	MinimumBid *moneyDTO `json:"minimumBid,omitempty"`
}

// writeError 将领域错误映射为 HTTP 状态码与结构化响应体。
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var bidTooLow *domain.BidTooLowError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failure", Fields: validationErr.Fields})
	case errors.As(err, &bidTooLow):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      "bid_too_low",
			MinimumBid: &moneyDTO{bidTooLow.Minimum.Amount, bidTooLow.Minimum.Currency},
		})
	case errors.Is(err, domain.ErrAuctionNotFound), errors.Is(err, domain.ErrBidderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, domain.ErrInvalidStatus):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "invalid_status"})
	case errors.Is(err, domain.ErrInvalidKind), errors.Is(err, domain.ErrKindMismatch):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "invalid_kind"})
	case errors.Is(err, domain.ErrAlreadyBid):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "already_bid"})
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "insufficient_balance"})
	default:
		logger.Ctx(context.Background()).Error().Err(err).Msg("unhandled error in http layer")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

// rejectionReason 把错误折叠成指标标签，避免高基数。
func rejectionReason(err error) string {
	var validationErr *domain.ValidationError
	var bidTooLow *domain.BidTooLowError
	switch {
	case errors.As(err, &bidTooLow):
		return "bid_too_low"
	case errors.As(err, &validationErr):
		return "validation_failure"
	case errors.Is(err, domain.ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, domain.ErrKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, domain.ErrAlreadyBid):
		return "already_bid"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrAuctionNotFound), errors.Is(err, domain.ErrBidderNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
