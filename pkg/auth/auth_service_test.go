package auth

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/pkg/jwt"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryNonces struct {
	mu     sync.Mutex
	nonces map[string]string
}

func (m *memoryNonces) Put(_ context.Context, address, nonce string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonces[strings.ToLower(address)] = nonce
	return nil
}

func (m *memoryNonces) Take(_ context.Context, address string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nonces[strings.ToLower(address)]
	delete(m.nonces, strings.ToLower(address))
	return n, nil
}

func sign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func newTestAuth(t *testing.T, admins ...string) (AuthService, jwt.JWTService) {
	t.Helper()
	tokens := jwt.NewJWTServiceWithSecret("test-secret")
	return NewAuthService(&memoryNonces{nonces: map[string]string{}}, tokens, admins, time.Minute, zap.NewNop()), tokens
}

func TestWalletLogin(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	svc, tokens := newTestAuth(t)
	ctx := context.Background()

	issued, err := svc.IssueNonce(ctx, domain.NonceRequest{Address: strings.ToLower(address)})
	require.NoError(t, err)
	assert.Len(t, issued.Nonce, 32)
	assert.Contains(t, issued.Message, address)

	res, err := svc.Login(ctx, domain.LoginRequest{Address: address, Signature: sign(t, key, issued.Message)})
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(address), res.Address)
	assert.Equal(t, domain.RoleUser, res.Role)

	wallet, role, err := tokens.GetUserIDByToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(address), wallet)
	assert.Equal(t, domain.RoleUser, role)

	_, err = svc.Login(ctx, domain.LoginRequest{Address: address, Signature: sign(t, key, issued.Message)})
	assert.ErrorIs(t, err, domain.ErrNonceNotFound)
}

func TestAdminWalletGetsAdminRole(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	svc, _ := newTestAuth(t, " "+address+" ")
	issued, err := svc.IssueNonce(context.Background(), domain.NonceRequest{Address: address})
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), domain.LoginRequest{Address: address, Signature: sign(t, key, issued.Message)})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Role)
}

func TestLoginRejectsOtherSigner(t *testing.T) {
	victim, err := crypto.GenerateKey()
	require.NoError(t, err)
	attacker, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(victim.PublicKey).Hex()

	svc, _ := newTestAuth(t)
	issued, err := svc.IssueNonce(context.Background(), domain.NonceRequest{Address: address})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), domain.LoginRequest{Address: address, Signature: sign(t, attacker, issued.Message)})
	assert.ErrorIs(t, err, domain.ErrSignerMismatch)

	// the failed attempt burnt the nonce
	_, err = svc.Login(context.Background(), domain.LoginRequest{Address: address, Signature: sign(t, victim, issued.Message)})
	assert.ErrorIs(t, err, domain.ErrNonceNotFound)
}

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	got, err := RecoverSigner("hello", sign(t, key, "hello"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := crypto.Sign(accounts.TextHash([]byte("hello")), key)
	require.NoError(t, err)
	got, err = RecoverSigner("hello", hexutil.Encode(raw))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, bad := range []string{"", "0x", "zz", "0x1234"} {
		_, err := RecoverSigner("hello", bad)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature, bad)
	}
}
