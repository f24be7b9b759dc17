// Package handler exposes the wallet session over HTTP for the local UI.
// Every route operates on the single device identity; there is no user auth
// layer, the surface binds to loopback.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"persona/internal/confirm"
	"persona/internal/envelope"
	"persona/internal/platform/metrics"
	"persona/internal/platform/middleware"
	"persona/internal/registry"
	"persona/internal/relay"
	"persona/internal/wallet"
	dErrors "persona/pkg/domain-errors"
	"persona/pkg/platform/httputil"
	"persona/pkg/platform/sentinel"
)

// Service defines the interface for wallet session operations.
type Service interface {
	Identity() (address, publicKey string)
	RevealPrivateKey(ctx context.Context) string
	State() (wallet.State, string)
	Profile() map[envelope.Field]string
	SetProfile(values map[envelope.Field]string)
	Save(ctx context.Context) (wallet.SaveOutcome, error)
	ConfirmAnchor(ctx context.Context, token string) (registry.Receipt, error)
	DeclineAnchor(ctx context.Context) error
	HandleScan(ctx context.Context, raw string) (*wallet.PendingDisclosure, error)
	PendingDisclosures() []*wallet.PendingDisclosure
	ApproveDisclosure(ctx context.Context, disclosureID string) (relay.Receipt, error)
	RejectDisclosure(ctx context.Context, disclosureID string) error
}

// Handler handles wallet endpoints.
type Handler struct {
	logger  *slog.Logger
	session Service
	metrics *metrics.Metrics
}

// New creates a new wallet Handler.
func New(session Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		session: session,
		metrics: m,
	}
}

// Register registers the wallet routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	walletRouter := chi.NewRouter()
	walletRouter.Use(middleware.Recovery(h.logger))
	walletRouter.Use(middleware.RequestID)
	walletRouter.Use(middleware.Logger(h.logger))
	walletRouter.Use(middleware.Timeout(30 * time.Second))
	walletRouter.Use(middleware.ContentTypeJSON)
	walletRouter.Use(middleware.LatencyMiddleware(h.metrics))

	walletRouter.Get("/wallet/identity", h.handleIdentity)
	walletRouter.Post("/wallet/identity/reveal", h.handleRevealKey)
	walletRouter.Get("/wallet/state", h.handleState)
	walletRouter.Get("/wallet/profile", h.handleGetProfile)
	walletRouter.Put("/wallet/profile", h.handlePutProfile)
	walletRouter.Post("/wallet/persona", h.handleSave)
	walletRouter.Post("/wallet/persona/confirm", h.handleConfirmAnchor)
	walletRouter.Post("/wallet/persona/decline", h.handleDeclineAnchor)
	walletRouter.Post("/wallet/scans", h.handleScan)
	walletRouter.Get("/wallet/disclosures", h.handleListDisclosures)
	walletRouter.Post("/wallet/disclosures/{disclosureID}/approve", h.handleApproveDisclosure)
	walletRouter.Post("/wallet/disclosures/{disclosureID}/reject", h.handleRejectDisclosure)

	r.Mount("/", walletRouter)
}

type identityResponse struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	addr, pub := h.session.Identity()
	httputil.WriteJSON(w, http.StatusOK, identityResponse{Address: addr, PublicKey: pub})
}

func (h *Handler) handleRevealKey(w http.ResponseWriter, r *http.Request) {
	key := h.session.RevealPrivateKey(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"privateKey": key})
}

type stateResponse struct {
	State  wallet.State `json:"state"`
	Reason string       `json:"reason,omitempty"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	state, reason := h.session.State()
	httputil.WriteJSON(w, http.StatusOK, stateResponse{State: state, Reason: reason})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.session.Profile())
}

func (h *Handler) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var values map[envelope.Field]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		h.logger.WarnContext(ctx, "invalid profile body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.session.SetProfile(values)
	w.WriteHeader(http.StatusNoContent)
}

type saveResponse struct {
	Status       wallet.SaveStatus `json:"status"`
	Address      string            `json:"address"`
	ConfirmToken string            `json:"confirmToken,omitempty"`
	From         string            `json:"from,omitempty"`
	GasLimit     uint64            `json:"gasLimit,omitempty"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	outcome, err := h.session.Save(ctx)
	if err != nil {
		h.writeSessionError(w, r, "save persona", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saveResponse{
		Status:       outcome.Status,
		Address:      string(outcome.Address),
		ConfirmToken: outcome.ConfirmToken,
		From:         outcome.From,
		GasLimit:     outcome.GasLimit,
	})
}

type confirmRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleConfirmAnchor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing confirmation token"))
		return
	}

	receipt, err := h.session.ConfirmAnchor(ctx, req.Token)
	if err != nil {
		h.writeSessionError(w, r, "confirm anchor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"txHash": receipt.TxHash})
}

func (h *Handler) handleDeclineAnchor(w http.ResponseWriter, r *http.Request) {
	if err := h.session.DeclineAnchor(r.Context()); err != nil {
		h.writeSessionError(w, r, "decline anchor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scanRequest struct {
	Payload string `json:"payload"`
}

type disclosureResponse struct {
	ID        string                  `json:"id"`
	Requester string                  `json:"requester,omitempty"`
	Fields    []envelope.Field        `json:"fields"`
	Status    wallet.DisclosureStatus `json:"status"`
}

func toDisclosureResponse(p *wallet.PendingDisclosure) disclosureResponse {
	return disclosureResponse{
		ID:        p.ID,
		Requester: p.Request.RequesterName,
		Fields:    p.Request.Fields,
		Status:    p.Status,
	}
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	pending, err := h.session.HandleScan(ctx, req.Payload)
	if err != nil {
		h.writeSessionError(w, r, "handle scan", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDisclosureResponse(pending))
}

func (h *Handler) handleListDisclosures(w http.ResponseWriter, r *http.Request) {
	pending := h.session.PendingDisclosures()
	out := make([]disclosureResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, toDisclosureResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleApproveDisclosure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disclosureID := chi.URLParam(r, "disclosureID")

	receipt, err := h.session.ApproveDisclosure(ctx, disclosureID)
	if err != nil {
		h.writeSessionError(w, r, "approve disclosure", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"hash": receipt.Hash})
}

func (h *Handler) handleRejectDisclosure(w http.ResponseWriter, r *http.Request) {
	disclosureID := chi.URLParam(r, "disclosureID")
	if err := h.session.RejectDisclosure(r.Context(), disclosureID); err != nil {
		h.writeSessionError(w, r, "reject disclosure", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSessionError translates session errors into domain error codes. Codes
// already attached upstream pass through unchanged.
func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()

	var de *dErrors.Error
	if errors.As(err, &de) {
		httputil.WriteError(w, de)
		return
	}

	switch {
	case errors.Is(err, wallet.ErrMalformedRequest):
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeBadRequest, "malformed disclosure request", err))
	case errors.Is(err, wallet.ErrUnknownDisclosure), errors.Is(err, wallet.ErrNoPendingAnchor), errors.Is(err, sentinel.ErrNotFound):
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeNotFound, err.Error(), err))
	case errors.Is(err, confirm.ErrInvalidToken):
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnauthorized, "confirmation token rejected", err))
	case errors.Is(err, sentinel.ErrBusy):
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeConflict, "another flow is in progress", err))
	case errors.Is(err, registry.ErrRejected):
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeRejected, "transaction rejected", err))
	case errors.Is(err, sentinel.ErrTimeout), errors.Is(err, sentinel.ErrUnavailable),
		errors.Is(err, registry.ErrChain), errors.Is(err, relay.ErrDelivery):
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "upstream unavailable", err))
	default:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to "+op))
	}
}
