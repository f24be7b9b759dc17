package confirm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-key", time.Minute)

	token, err := svc.Issue("0xowner", "QmPersona")
	require.NoError(t, err)

	assert.NoError(t, svc.Verify(token, "0xowner", "QmPersona"))
}

func TestVerifyRejectsDifferentAddress(t *testing.T) {
	svc := NewService("test-key", time.Minute)

	token, err := svc.Issue("0xowner", "QmPersona")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Verify(token, "0xowner", "QmOther"), ErrInvalidToken)
	assert.ErrorIs(t, svc.Verify(token, "0xother", "QmPersona"), ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewService("test-key", time.Minute)

	token, err := svc.Issue("0xowner", "QmPersona")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	assert.ErrorIs(t, svc.Verify(tampered, "0xowner", "QmPersona"), ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-key", -time.Minute)

	token, err := svc.Issue("0xowner", "QmPersona")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Verify(token, "0xowner", "QmPersona"), ErrInvalidToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	issuer := NewService("key-one", time.Minute)
	verifier := NewService("key-two", time.Minute)

	token, err := issuer.Issue("0xowner", "QmPersona")
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.Verify(token, "0xowner", "QmPersona"), ErrInvalidToken)
}
