package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	"persona/internal/cas"
	"persona/internal/envelope"
	strutil "persona/pkg/platform/strings"
)

// ErrMalformedRequest reports a scanned payload that does not validate as a
// disclosure request. The scan is dropped with a log line; session state is
// untouched.
var ErrMalformedRequest = errors.New("malformed disclosure request")

// ErrUnknownDisclosure reports an approve/reject for a disclosure ID that is
// not pending.
var ErrUnknownDisclosure = errors.New("unknown disclosure")

// ErrNoPendingAnchor reports a confirm/decline with no anchoring awaiting
// confirmation.
var ErrNoPendingAnchor = errors.New("no anchor awaiting confirmation")

// State tracks the session's persona-load lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateLoadFailed State = "load_failed"
)

// DisclosureStatus tracks one scan-authorize-send cycle.
type DisclosureStatus string

const (
	DisclosureAwaitingConsent DisclosureStatus = "awaiting_consent"
	DisclosureDelivering      DisclosureStatus = "delivering"
	DisclosureDelivered       DisclosureStatus = "delivered"
	DisclosureRejected        DisclosureStatus = "rejected"
)

// DisclosureRequest is a third party's validated ask for specific persona
// fields. Transient: it lives for one scan-authorize-send cycle and is never
// persisted.
type DisclosureRequest struct {
	RequesterPublicKey string
	TargetAddress      string
	RequesterName      string
	Fields             []envelope.Field
}

// scannedPayload is the wire shape produced by the requesting app.
type scannedPayload struct {
	PublicKey   string   `json:"publicKey"`
	Hash        string   `json:"hash"`
	Permissions []string `json:"permissions"`
	Name        string   `json:"name"`
}

// ParseDisclosureRequest validates raw scanned text. Payloads missing
// publicKey, hash, or permissions are rejected without side effects.
func ParseDisclosureRequest(raw string) (DisclosureRequest, error) {
	var p scannedPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return DisclosureRequest{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	perms := strutil.DedupeAndTrimLower(p.Permissions)
	if p.PublicKey == "" || p.Hash == "" || len(perms) == 0 {
		return DisclosureRequest{}, fmt.Errorf("%w: missing publicKey, hash, or permissions", ErrMalformedRequest)
	}

	fields := make([]envelope.Field, 0, len(perms))
	for _, perm := range perms {
		fields = append(fields, envelope.Field(perm))
	}
	return DisclosureRequest{
		RequesterPublicKey: p.PublicKey,
		TargetAddress:      p.Hash,
		RequesterName:      p.Name,
		Fields:             fields,
	}, nil
}

// PendingDisclosure is a parsed request awaiting the user's approve/reject.
type PendingDisclosure struct {
	ID      string
	Request DisclosureRequest
	Status  DisclosureStatus
}

// SaveStatus describes the terminal state of one save attempt's anchoring leg.
type SaveStatus string

const (
	// SaveSkipped means the published content address matched the anchored
	// pointer, so no registry write was needed.
	SaveSkipped SaveStatus = "skipped"

	// SaveConfirmRequired means the address changed; anchoring awaits the
	// user's explicit approval of the returned token.
	SaveConfirmRequired SaveStatus = "confirm_required"
)

// SaveOutcome is returned by Save. When confirmation is required it carries
// the approval token bound to the published address plus the prompt details.
type SaveOutcome struct {
	Status       SaveStatus
	Address      cas.Address
	ConfirmToken string
	From         string // owner account paying the fee
	GasLimit     uint64
}
