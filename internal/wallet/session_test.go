package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona/internal/cas"
	"persona/internal/confirm"
	"persona/internal/cryptobox"
	"persona/internal/envelope"
	"persona/internal/identity"
	"persona/internal/registry"
	"persona/internal/relay"
	"persona/pkg/platform/sentinel"
	"persona/pkg/testutil"
)

// fakeStore is an in-memory content-addressed store. Addresses are derived
// from content, so publishing identical bytes yields identical addresses.
type fakeStore struct {
	objects      map[cas.Address][]byte
	publishCalls int
	fetchCalls   int
	publishErr   error
	fetchErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[cas.Address][]byte)}
}

func (f *fakeStore) Publish(_ context.Context, _ string, data []byte) (cas.Address, error) {
	f.publishCalls++
	if f.publishErr != nil {
		return "", f.publishErr
	}
	sum := sha256.Sum256(data)
	addr := cas.Address("Qm" + hex.EncodeToString(sum[:16]))
	f.objects[addr] = data
	return addr, nil
}

func (f *fakeStore) Fetch(_ context.Context, addr cas.Address) ([]byte, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return data, nil
}

type fakeRegistry struct {
	pointers   map[string]cas.Address
	writeCalls int
	writeErr   error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{pointers: make(map[string]cas.Address)}
}

func (f *fakeRegistry) ReadPointer(_ context.Context, owner string) (cas.Address, error) {
	return f.pointers[owner], nil
}

func (f *fakeRegistry) WritePointer(_ context.Context, owner string, addr cas.Address, _ registry.Signer) (registry.Receipt, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return registry.Receipt{}, f.writeErr
	}
	f.pointers[owner] = addr
	return registry.Receipt{TxHash: "0xtx" + string(addr)}, nil
}

type delivery struct {
	target     string
	ciphertext []byte
}

type fakeRelay struct {
	deliveries []delivery
	err        error
}

func (f *fakeRelay) Deliver(_ context.Context, target string, ciphertext []byte) (relay.Receipt, error) {
	if f.err != nil {
		return relay.Receipt{}, f.err
	}
	f.deliveries = append(f.deliveries, delivery{target: target, ciphertext: ciphertext})
	return relay.Receipt{Hash: "Qmreply"}, nil
}

type fixture struct {
	id       identity.Identity
	store    *fakeStore
	registry *fakeRegistry
	relay    *fakeRelay
	session  *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)

	store := newFakeStore()
	reg := newFakeRegistry()
	rel := &fakeRelay{}

	session := NewSession(Config{
		Identity:  id,
		Store:     store,
		Registry:  reg,
		Relay:     rel,
		Confirmer: confirm.NewService("test-signing-key", time.Minute),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		GasLimit:  250000,
	})
	return &fixture{id: id, store: store, registry: reg, relay: rel, session: session}
}

// saveAndConfirm runs the full publish-confirm-anchor leg.
func (f *fixture) saveAndConfirm(t *testing.T) cas.Address {
	t.Helper()
	ctx := context.Background()

	outcome, err := f.session.Save(ctx)
	require.NoError(t, err)
	require.Equal(t, SaveConfirmRequired, outcome.Status)

	_, err = f.session.ConfirmAnchor(ctx, outcome.ConfirmToken)
	require.NoError(t, err)
	return outcome.Address
}

func TestLoadFirstRun(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Load(context.Background()))

	state, reason := f.session.State()
	assert.Equal(t, StateReady, state)
	assert.Empty(t, reason)
	assert.Empty(t, f.session.Profile())
	assert.Zero(t, f.store.fetchCalls, "sentinel pointer must short-circuit before any store call")
}

func TestLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plaintext, err := envelope.Build(envelope.AllFields, func(field envelope.Field) string {
		return map[envelope.Field]string{
			envelope.FieldName: "Alice",
			envelope.FieldCity: "Berlin",
		}[field]
	})
	require.NoError(t, err)
	ciphertext, err := cryptobox.Encrypt(f.id.PublicKey, f.id.PrivateKey, plaintext)
	require.NoError(t, err)
	addr, err := f.store.Publish(ctx, "seed", ciphertext)
	require.NoError(t, err)
	f.registry.pointers[f.id.Addr] = addr

	require.NoError(t, f.session.Load(ctx))

	state, _ := f.session.State()
	assert.Equal(t, StateReady, state)
	profile := f.session.Profile()
	assert.Equal(t, "Alice", profile[envelope.FieldName])
	assert.Equal(t, "Berlin", profile[envelope.FieldCity])
	assert.Equal(t, "", profile[envelope.FieldEmail])
}

func TestLoadFailureLeavesSessionUsable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Anchored pointer resolves to bytes this identity cannot decrypt.
	addr, err := f.store.Publish(ctx, "garbage", []byte("not a ciphertext at all, definitely long enough"))
	require.NoError(t, err)
	f.registry.pointers[f.id.Addr] = addr

	err = f.session.Load(ctx)
	require.Error(t, err)
	state, reason := f.session.State()
	assert.Equal(t, StateLoadFailed, state)
	assert.NotEmpty(t, reason)

	// The user can still build and save a fresh persona.
	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
	outcome, err := f.session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, SaveConfirmRequired, outcome.Status)
}

func TestSavePublishesBeforeAnchoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
	outcome, err := f.session.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, SaveConfirmRequired, outcome.Status)
	assert.Equal(t, 1, f.store.publishCalls)
	assert.Zero(t, f.registry.writeCalls, "anchoring waits for confirmation")
	assert.NotEmpty(t, outcome.ConfirmToken)
	assert.Equal(t, f.id.Addr, outcome.From)
	assert.Equal(t, uint64(250000), outcome.GasLimit)

	// Published bytes decrypt back to the full four-field envelope.
	plaintext, err := cryptobox.Decrypt(f.id.PrivateKey, f.store.objects[outcome.Address])
	require.NoError(t, err)
	fields, err := envelope.Parse(plaintext)
	require.NoError(t, err)
	assert.Len(t, fields, len(envelope.AllFields))
	assert.Equal(t, "Alice", fields[envelope.FieldName])
}

func TestConfirmAnchorWritesPointer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
	addr := f.saveAndConfirm(t)

	assert.Equal(t, 1, f.registry.writeCalls)
	assert.Equal(t, addr, f.registry.pointers[f.id.Addr])

	// Confirming again without a new save is rejected.
	_, err := f.session.ConfirmAnchor(ctx, "whatever")
	assert.ErrorIs(t, err, ErrNoPendingAnchor)
}

func TestAnchorNeverWrittenWithoutValidToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
	_, err := f.session.Save(ctx)
	require.NoError(t, err)

	_, err = f.session.ConfirmAnchor(ctx, "not-a-token")
	assert.ErrorIs(t, err, confirm.ErrInvalidToken)
	assert.Zero(t, f.registry.writeCalls)

	// A token minted for a different address is just as invalid.
	otherToken, err := confirm.NewService("test-signing-key", time.Minute).Issue(f.id.Addr, "QmSomethingElse")
	require.NoError(t, err)
	_, err = f.session.ConfirmAnchor(ctx, otherToken)
	assert.ErrorIs(t, err, confirm.ErrInvalidToken)
	assert.Zero(t, f.registry.writeCalls)
}

func TestSaveUnchangedSkipsRegistryWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	f.session.SetProfile(map[envelope.Field]string{
		envelope.FieldName: "Alice",
		envelope.FieldCity: "Berlin",
	})
	firstAddr := f.saveAndConfirm(t)
	require.Equal(t, 1, f.registry.writeCalls)

	outcome, err := f.session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, SaveSkipped, outcome.Status)
	assert.Equal(t, firstAddr, outcome.Address)
	assert.Empty(t, outcome.ConfirmToken)
	assert.Equal(t, 1, f.registry.writeCalls, "unchanged content must not write the pointer again")

	// Changing a field makes the next save prompt again.
	f.session.SetProfile(map[envelope.Field]string{envelope.FieldCity: "Lisbon"})
	outcome, err = f.session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, SaveConfirmRequired, outcome.Status)
	assert.NotEqual(t, firstAddr, outcome.Address)
}

func TestDeclineAnchorLeavesPointerUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
	outcome, err := f.session.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.DeclineAnchor(ctx))
	assert.Zero(t, f.registry.writeCalls)

	// The approval token dies with the declined prompt.
	_, err = f.session.ConfirmAnchor(ctx, outcome.ConfirmToken)
	assert.ErrorIs(t, err, ErrNoPendingAnchor)

	assert.ErrorIs(t, f.session.DeclineAnchor(ctx), ErrNoPendingAnchor)
}

func TestHandleScanMalformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
	before, _ := f.session.State()

	for name, raw := range map[string]string{
		"not json":            "%%% nonsense %%%",
		"missing publicKey":   `{"hash":"Qmx","permissions":["name"]}`,
		"missing hash":        `{"publicKey":"02ab","permissions":["name"]}`,
		"missing permissions": `{"publicKey":"02ab","hash":"Qmx"}`,
	} {
		t.Run(name, func(t *testing.T) {
			pending, err := f.session.HandleScan(ctx, raw)
			assert.ErrorIs(t, err, ErrMalformedRequest)
			assert.Nil(t, pending)
		})
	}

	after, _ := f.session.State()
	assert.Equal(t, before, after, "malformed scans must not change session state")
	assert.Empty(t, f.session.PendingDisclosures())
	assert.Empty(t, f.relay.deliveries, "malformed scans must not trigger network calls")
}

func TestParseDisclosureRequestNormalizesPermissions(t *testing.T) {
	req, err := ParseDisclosureRequest(`{"publicKey":"02ab","hash":"Qmx","permissions":[" Name","name","CITY",""]}`)
	require.NoError(t, err)
	assert.Equal(t, []envelope.Field{envelope.FieldName, envelope.FieldCity}, req.Fields)

	// Whitespace-only permissions collapse to nothing and are malformed.
	_, err = ParseDisclosureRequest(`{"publicKey":"02ab","hash":"Qmx","permissions":["  ",""]}`)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestApproveDisclosureSendsExactlyRequestedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	f.session.SetProfile(map[envelope.Field]string{
		envelope.FieldName:    "Alice",
		envelope.FieldEmail:   "alice@example.com",
		envelope.FieldCity:    "Berlin",
		envelope.FieldCountry: "Germany",
	})

	requester, err := identity.Generate()
	require.NoError(t, err)

	pending, err := f.session.HandleScan(ctx, `{
		"publicKey": "`+requester.PublicKey+`",
		"hash": "QmDropbox",
		"permissions": ["name", "city"],
		"name": "Coffee Loyalty"
	}`)
	require.NoError(t, err)
	assert.Equal(t, DisclosureAwaitingConsent, pending.Status)

	receipt, err := f.session.ApproveDisclosure(ctx, pending.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Hash)
	require.Len(t, f.relay.deliveries, 1)
	assert.Equal(t, "QmDropbox", f.relay.deliveries[0].target)

	// Only the requester can open the reply, and it holds exactly the two
	// requested fields.
	plaintext, err := cryptobox.Decrypt(requester.PrivateKey, f.relay.deliveries[0].ciphertext)
	require.NoError(t, err)
	fields, err := envelope.Parse(plaintext)
	require.NoError(t, err)
	assert.Equal(t, map[envelope.Field]string{
		envelope.FieldName: "Alice",
		envelope.FieldCity: "Berlin",
	}, fields)

	_, err = cryptobox.Decrypt(f.id.PrivateKey, f.relay.deliveries[0].ciphertext)
	assert.Error(t, err, "the reply is addressed to the requester, not the owner")

	assert.Empty(t, f.session.PendingDisclosures())
}

func TestRejectDisclosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})

	pending, err := f.session.HandleScan(ctx, `{"publicKey":"02ab","hash":"Qmx","permissions":["name"]}`)
	require.NoError(t, err)

	require.NoError(t, f.session.RejectDisclosure(ctx, pending.ID))
	assert.Empty(t, f.relay.deliveries, "rejection must not deliver anything")
	assert.Empty(t, f.session.PendingDisclosures())

	assert.ErrorIs(t, f.session.RejectDisclosure(ctx, pending.ID), ErrUnknownDisclosure)
	assert.ErrorIs(t, f.session.RejectDisclosure(ctx, "nope"), ErrUnknownDisclosure)
}

func TestApproveUnknownDisclosure(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.ApproveDisclosure(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownDisclosure)
}

func TestDeliveryFailureKeepsDisclosurePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})

	requester, err := identity.Generate()
	require.NoError(t, err)
	pending, err := f.session.HandleScan(ctx, `{"publicKey":"`+requester.PublicKey+`","hash":"Qmx","permissions":["name"]}`)
	require.NoError(t, err)

	f.relay.err = errors.New("relay down")
	_, err = f.session.ApproveDisclosure(ctx, pending.ID)
	require.Error(t, err)

	// The request stays pending so the user can retry.
	require.Len(t, f.session.PendingDisclosures(), 1)
	assert.Equal(t, DisclosureAwaitingConsent, f.session.PendingDisclosures()[0].Status)

	f.relay.err = nil
	_, err = f.session.ApproveDisclosure(ctx, pending.ID)
	require.NoError(t, err)
}

func TestSingleFlowAtATime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.begin())

	_, err := f.session.Save(ctx)
	assert.ErrorIs(t, err, sentinel.ErrBusy)
	_, err = f.session.ConfirmAnchor(ctx, "token")
	assert.ErrorIs(t, err, sentinel.ErrBusy)
	_, err = f.session.ApproveDisclosure(ctx, "id")
	assert.ErrorIs(t, err, sentinel.ErrBusy)
	assert.ErrorIs(t, f.session.Load(ctx), sentinel.ErrBusy)

	f.session.end()
	require.NoError(t, f.session.Load(ctx))
}

// Profile edits are not gated by the single-flight guard, so they can land
// while a save is building the envelope. The envelope must see a stable
// snapshot, not the live map.
func TestConcurrentProfileEditsDuringSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			f.session.SetProfile(map[envelope.Field]string{envelope.FieldCity: strconv.Itoa(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := f.session.Save(ctx)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
}

func TestFirstRunScenario(t *testing.T) {
	ctx := context.Background()
	accounts := identity.NewInMemoryStore()

	var f *fixture
	var outcome SaveOutcome

	testutil.Given(t, "a device with no stored account", func(t *testing.T) {
		id, created, err := identity.Ensure(ctx, accounts)
		require.NoError(t, err)
		assert.True(t, created, "first run generates a fresh identity")

		store := newFakeStore()
		reg := newFakeRegistry()
		f = &fixture{
			id:       id,
			store:    store,
			registry: reg,
			relay:    &fakeRelay{},
		}
		f.session = NewSession(Config{
			Identity:  id,
			Store:     store,
			Registry:  reg,
			Relay:     f.relay,
			Confirmer: confirm.NewService("test-signing-key", time.Minute),
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
			GasLimit:  250000,
		})
	})

	testutil.When(t, "the startup load runs against an empty registry", func(t *testing.T) {
		require.NoError(t, f.session.Load(ctx))
		state, _ := f.session.State()
		assert.Equal(t, StateReady, state)
		assert.Zero(t, f.store.fetchCalls)
	})

	testutil.When(t, "the user fills in a name and saves", func(t *testing.T) {
		f.session.SetProfile(map[envelope.Field]string{envelope.FieldName: "Alice"})
		var err error
		outcome, err = f.session.Save(ctx)
		require.NoError(t, err)
		require.Equal(t, SaveConfirmRequired, outcome.Status)
		assert.Zero(t, f.registry.writeCalls)
	})

	testutil.Then(t, "confirming anchors the pointer exactly once", func(t *testing.T) {
		receipt, err := f.session.ConfirmAnchor(ctx, outcome.ConfirmToken)
		require.NoError(t, err)
		assert.NotEmpty(t, receipt.TxHash)
		assert.Equal(t, 1, f.registry.writeCalls)
		assert.Equal(t, outcome.Address, f.registry.pointers[f.id.Addr])
	})

	testutil.Then(t, "a second identical save is skipped outright", func(t *testing.T) {
		again, err := f.session.Save(ctx)
		require.NoError(t, err)
		assert.Equal(t, SaveSkipped, again.Status)
		assert.Equal(t, 1, f.registry.writeCalls)
	})
}
