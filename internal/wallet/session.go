// Package wallet holds the disclosure orchestrator: the state machine that
// loads the owner's persona on startup, answers scanned disclosure requests,
// and publishes-then-anchors persona updates. One flow runs at a time; a
// second save or disclosure while one is in flight fails fast with ErrBusy.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"persona/internal/cas"
	"persona/internal/cryptobox"
	"persona/internal/envelope"
	"persona/internal/identity"
	"persona/internal/platform/metrics"
	"persona/internal/registry"
	"persona/internal/relay"
	"persona/pkg/platform/audit"
	"persona/pkg/platform/sentinel"
)

// Store publishes and fetches persona envelopes by content address.
type Store interface {
	Publish(ctx context.Context, name string, data []byte) (cas.Address, error)
	Fetch(ctx context.Context, addr cas.Address) ([]byte, error)
}

// Registry anchors and reads the owner's persona pointer.
type Registry interface {
	ReadPointer(ctx context.Context, owner string) (cas.Address, error)
	WritePointer(ctx context.Context, owner string, addr cas.Address, signer registry.Signer) (registry.Receipt, error)
}

// Relay delivers encrypted disclosure replies.
type Relay interface {
	Deliver(ctx context.Context, target string, ciphertext []byte) (relay.Receipt, error)
}

// Confirmer gates fee-bearing writes behind approval tokens bound to one
// exact content address.
type Confirmer interface {
	Issue(owner, addr string) (string, error)
	Verify(token, owner, addr string) error
}

// Session is the per-identity orchestrator. Created at startup, dropped at
// session end; all flow state lives here, no package globals.
type Session struct {
	id identity.Identity

	store     Store
	registry  Registry
	relay     Relay
	confirmer Confirmer

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Publisher
	tracer  trace.Tracer

	gasLimit uint64

	mu          sync.Mutex
	inFlight    bool
	state       State
	loadReason  string
	profile     map[envelope.Field]string
	lastPointer cas.Address
	pending     map[string]*PendingDisclosure
	anchorAddr  cas.Address // address awaiting confirmation, zero when none
}

// Config wires the session's collaborators.
type Config struct {
	Identity  identity.Identity
	Store     Store
	Registry  Registry
	Relay     Relay
	Confirmer Confirmer
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Auditor   audit.Publisher
	GasLimit  uint64
}

// NewSession builds an idle session for the given identity.
func NewSession(cfg Config) *Session {
	auditor := cfg.Auditor
	if auditor == nil {
		auditor = audit.NopPublisher{}
	}
	return &Session{
		id:        cfg.Identity,
		store:     cfg.Store,
		registry:  cfg.Registry,
		relay:     cfg.Relay,
		confirmer: cfg.Confirmer,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		auditor:   auditor,
		tracer:    otel.Tracer("persona/internal/wallet"),
		gasLimit:  cfg.GasLimit,
		state:     StateIdle,
		profile:   make(map[envelope.Field]string),
		pending:   make(map[string]*PendingDisclosure),
	}
}

// Identity returns the session's account address and public key. The private
// key has its own accessor so revealing it leaves an audit trail.
func (s *Session) Identity() (address, publicKey string) {
	return s.id.Addr, s.id.PublicKey
}

// RevealPrivateKey returns the raw private key for user-driven backup.
func (s *Session) RevealPrivateKey(ctx context.Context) string {
	s.auditor.Emit(ctx, audit.Event{
		Owner:  s.id.Addr,
		Action: string(audit.EventKeyRevealed),
	})
	return s.id.PrivateKey
}

// State reports the persona-load lifecycle state and, when load failed, the
// failing reason.
func (s *Session) State() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.loadReason
}

// Profile returns a copy of the current field values.
func (s *Session) Profile() map[envelope.Field]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.profile)
}

func copyProfile(profile map[envelope.Field]string) map[envelope.Field]string {
	out := make(map[envelope.Field]string, len(profile))
	for k, v := range profile {
		out[k] = v
	}
	return out
}

// SetProfile replaces the current field values. Unknown fields are dropped.
func (s *Session) SetProfile(values map[envelope.Field]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f, v := range values {
		if envelope.Known(f) {
			s.profile[f] = v
		}
	}
}

// Load resolves the owner's own persona: pointer -> fetch -> decrypt ->
// parse. Runs once at startup. A sentinel pointer means first run; the
// session becomes Ready with an empty profile. Any failure leaves the session
// in LoadFailed with the reason, never a crash: the user can still create a
// persona.
func (s *Session) Load(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	ctx, span := s.tracer.Start(ctx, "wallet.Load")
	defer span.End()

	s.setState(StateLoading, "")

	addr, err := s.registry.ReadPointer(ctx, s.id.Addr)
	if err != nil {
		return s.failLoad(ctx, span, fmt.Errorf("resolve own pointer: %w", err))
	}
	if addr.IsZero() {
		// First run: nothing anchored yet, show the empty form.
		s.mu.Lock()
		s.lastPointer = ""
		s.mu.Unlock()
		s.setState(StateReady, "")
		return nil
	}

	ciphertext, err := s.store.Fetch(ctx, addr)
	if err != nil {
		return s.failLoad(ctx, span, fmt.Errorf("fetch persona: %w", err))
	}

	plaintext, err := cryptobox.Decrypt(s.id.PrivateKey, ciphertext)
	if err != nil {
		return s.failLoad(ctx, span, fmt.Errorf("decrypt persona: %w", err))
	}

	fields, err := envelope.Parse(plaintext)
	if err != nil {
		return s.failLoad(ctx, span, fmt.Errorf("parse persona: %w", err))
	}

	s.mu.Lock()
	s.lastPointer = addr
	s.profile = fields
	s.mu.Unlock()
	s.setState(StateReady, "")

	s.auditor.Emit(ctx, audit.Event{
		Owner:          s.id.Addr,
		Action:         string(audit.EventPersonaLoaded),
		ContentAddress: string(addr),
	})
	return nil
}

// HandleScan parses raw scanned text into a pending disclosure awaiting
// consent. Malformed payloads are logged and dropped; nothing changes and
// nothing goes out.
func (s *Session) HandleScan(ctx context.Context, raw string) (*PendingDisclosure, error) {
	req, err := ParseDisclosureRequest(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "dropping malformed scan", "error", err)
		if s.metrics != nil {
			s.metrics.MalformedScans.Inc()
		}
		return nil, err
	}

	pending := &PendingDisclosure{
		ID:      uuid.NewString(),
		Request: req,
		Status:  DisclosureAwaitingConsent,
	}

	s.mu.Lock()
	s.pending[pending.ID] = pending
	s.mu.Unlock()

	s.auditor.Emit(ctx, audit.Event{
		Owner:     s.id.Addr,
		Action:    string(audit.EventDisclosureRequested),
		Requester: req.RequesterName,
		Fields:    fieldList(req.Fields),
	})
	return pending, nil
}

// PendingDisclosures lists requests awaiting consent.
func (s *Session) PendingDisclosures() []*PendingDisclosure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PendingDisclosure, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	return out
}

// ApproveDisclosure builds an envelope containing exactly the requested
// fields, encrypts it for the requester, and delivers it to the request's
// target. Only fields the user approved here ever leave the wallet.
func (s *Session) ApproveDisclosure(ctx context.Context, disclosureID string) (relay.Receipt, error) {
	if err := s.begin(); err != nil {
		return relay.Receipt{}, err
	}
	defer s.end()

	ctx, span := s.tracer.Start(ctx, "wallet.ApproveDisclosure")
	defer span.End()

	s.mu.Lock()
	pending, ok := s.pending[disclosureID]
	if !ok {
		s.mu.Unlock()
		return relay.Receipt{}, ErrUnknownDisclosure
	}
	pending.Status = DisclosureDelivering
	// Snapshot the profile: SetProfile mutates the live map under s.mu and
	// the envelope is built after the lock is released.
	profile := copyProfile(s.profile)
	s.mu.Unlock()

	req := pending.Request
	plaintext, err := envelope.Build(req.Fields, func(f envelope.Field) string { return profile[f] })
	if err != nil {
		return relay.Receipt{}, s.failDisclosure(ctx, span, pending, err)
	}

	ciphertext, err := cryptobox.Encrypt(req.RequesterPublicKey, s.id.PrivateKey, plaintext)
	if err != nil {
		return relay.Receipt{}, s.failDisclosure(ctx, span, pending, err)
	}

	receipt, err := s.relay.Deliver(ctx, req.TargetAddress, ciphertext)
	if err != nil {
		return relay.Receipt{}, s.failDisclosure(ctx, span, pending, err)
	}

	s.mu.Lock()
	pending.Status = DisclosureDelivered
	delete(s.pending, disclosureID)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DisclosuresDelivered.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Owner:     s.id.Addr,
		Action:    string(audit.EventDisclosureDelivered),
		Requester: req.RequesterName,
		Fields:    fieldList(req.Fields),
		TxHash:    receipt.Hash,
	})
	return receipt, nil
}

// RejectDisclosure ends the cycle without anything leaving the wallet. A
// normal terminal outcome, not an error.
func (s *Session) RejectDisclosure(ctx context.Context, disclosureID string) error {
	s.mu.Lock()
	pending, ok := s.pending[disclosureID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownDisclosure
	}
	pending.Status = DisclosureRejected
	delete(s.pending, disclosureID)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DisclosuresRejected.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Owner:     s.id.Addr,
		Action:    string(audit.EventDisclosureRejected),
		Requester: pending.Request.RequesterName,
	})
	return nil
}

// Save publishes the full-field persona encrypted for self, then decides the
// anchoring leg: identical content address skips the registry write outright;
// a changed address returns a confirmation prompt whose token is bound to
// that exact address. Publish always precedes anchoring.
func (s *Session) Save(ctx context.Context) (SaveOutcome, error) {
	if err := s.begin(); err != nil {
		return SaveOutcome{}, err
	}
	defer s.end()

	ctx, span := s.tracer.Start(ctx, "wallet.Save")
	defer span.End()

	s.mu.Lock()
	profile := copyProfile(s.profile)
	last := s.lastPointer
	s.mu.Unlock()

	plaintext, err := envelope.Build(envelope.AllFields, func(f envelope.Field) string { return profile[f] })
	if err != nil {
		return SaveOutcome{}, err
	}

	ciphertext, err := cryptobox.Encrypt(s.id.PublicKey, s.id.PrivateKey, plaintext)
	if err != nil {
		return SaveOutcome{}, err
	}

	addr, err := s.store.Publish(ctx, s.id.PublicKey+"-"+s.id.PublicKey, ciphertext)
	if err != nil {
		span.RecordError(err)
		return SaveOutcome{}, fmt.Errorf("publish persona: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PersonasSaved.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Owner:          s.id.Addr,
		Action:         string(audit.EventPersonaPublished),
		ContentAddress: string(addr),
	})

	if addr == last {
		// Unchanged content: skip the paid write entirely.
		if s.metrics != nil {
			s.metrics.AnchorsSkipped.Inc()
		}
		s.auditor.Emit(ctx, audit.Event{
			Owner:          s.id.Addr,
			Action:         string(audit.EventAnchorSkipped),
			ContentAddress: string(addr),
		})
		return SaveOutcome{Status: SaveSkipped, Address: addr}, nil
	}

	token, err := s.confirmer.Issue(s.id.Addr, string(addr))
	if err != nil {
		return SaveOutcome{}, fmt.Errorf("issue confirmation: %w", err)
	}

	s.mu.Lock()
	s.anchorAddr = addr
	s.mu.Unlock()

	return SaveOutcome{
		Status:       SaveConfirmRequired,
		Address:      addr,
		ConfirmToken: token,
		From:         s.id.Addr,
		GasLimit:     s.gasLimit,
	}, nil
}

// ConfirmAnchor submits the pointer write the user just approved. The token
// must match the address still awaiting confirmation.
func (s *Session) ConfirmAnchor(ctx context.Context, token string) (registry.Receipt, error) {
	if err := s.begin(); err != nil {
		return registry.Receipt{}, err
	}
	defer s.end()

	ctx, span := s.tracer.Start(ctx, "wallet.ConfirmAnchor")
	defer span.End()

	s.mu.Lock()
	addr := s.anchorAddr
	s.mu.Unlock()
	if addr.IsZero() {
		return registry.Receipt{}, ErrNoPendingAnchor
	}
	if err := s.confirmer.Verify(token, s.id.Addr, string(addr)); err != nil {
		return registry.Receipt{}, err
	}

	receipt, err := s.registry.WritePointer(ctx, s.id.Addr, addr, s.id)
	if err != nil {
		span.RecordError(err)
		return registry.Receipt{}, err
	}

	s.mu.Lock()
	s.lastPointer = addr
	s.anchorAddr = ""
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.AnchorsSubmitted.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Owner:          s.id.Addr,
		Action:         string(audit.EventAnchorSubmitted),
		ContentAddress: string(addr),
		TxHash:         receipt.TxHash,
	})
	return receipt, nil
}

// DeclineAnchor drops the pending anchoring. The persona stays published but
// the on-chain pointer is left untouched; declining is a normal outcome.
func (s *Session) DeclineAnchor(ctx context.Context) error {
	s.mu.Lock()
	addr := s.anchorAddr
	s.anchorAddr = ""
	s.mu.Unlock()
	if addr.IsZero() {
		return ErrNoPendingAnchor
	}

	s.auditor.Emit(ctx, audit.Event{
		Owner:          s.id.Addr,
		Action:         string(audit.EventAnchorRejected),
		ContentAddress: string(addr),
	})
	return nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return sentinel.ErrBusy
	}
	s.inFlight = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Session) setState(state State, reason string) {
	s.mu.Lock()
	s.state = state
	s.loadReason = reason
	s.mu.Unlock()
}

func (s *Session) failLoad(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	s.logger.ErrorContext(ctx, "persona load failed", "error", err)
	s.setState(StateLoadFailed, err.Error())
	return err
}

func (s *Session) failDisclosure(ctx context.Context, span trace.Span, pending *PendingDisclosure, err error) error {
	span.RecordError(err)
	s.mu.Lock()
	pending.Status = DisclosureAwaitingConsent // user may retry manually
	s.mu.Unlock()
	s.auditor.Emit(ctx, audit.Event{
		Owner:     s.id.Addr,
		Action:    string(audit.EventDisclosureFailed),
		Requester: pending.Request.RequesterName,
		Reason:    err.Error(),
	})
	return fmt.Errorf("disclosure delivery: %w", err)
}

func fieldList(fields []envelope.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
