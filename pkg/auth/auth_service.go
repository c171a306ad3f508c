package auth

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/pkg/jwt"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const DefaultNonceTTL = 5 * time.Minute

type (
	AuthService interface {
		IssueNonce(ctx context.Context, req domain.NonceRequest) (*domain.NonceResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	}

	authService struct {
		nonces     NonceStore
		jwtService jwt.JWTService
		admins     []string
		ttl        time.Duration
		log        *zap.Logger
		now        func() time.Time
	}
)

// NewAuthService creates the wallet login flow. Addresses in admins get the
// admin role.
func NewAuthService(nonces NonceStore, jwtService jwt.JWTService, admins []string, ttl time.Duration, log *zap.Logger) AuthService {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	lowered := make([]string, 0, len(admins))
	for _, a := range admins {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(a)))
	}
	return &authService{
		nonces:     nonces,
		jwtService: jwtService,
		admins:     lowered,
		ttl:        ttl,
		log:        log,
		now:        time.Now,
	}
}

// LoginMessage is the text a wallet signs with personal_sign to log in.
func LoginMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to Crimson\n\nWallet: %s\nNonce: %s", common.HexToAddress(address).Hex(), nonce)
}

func (s *authService) IssueNonce(ctx context.Context, req domain.NonceRequest) (*domain.NonceResponse, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	nonce := hex.EncodeToString(buf)

	if err := s.nonces.Put(ctx, req.Address, nonce, s.ttl); err != nil {
		return nil, fmt.Errorf("store nonce: %w", err)
	}
	return &domain.NonceResponse{
		Address:   strings.ToLower(req.Address),
		Nonce:     nonce,
		Message:   LoginMessage(req.Address, nonce),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// Login checks the signature over the outstanding nonce. The nonce is
// consumed whether or not the signature verifies.
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	nonce, err := s.nonces.Take(ctx, req.Address)
	if err != nil {
		return nil, fmt.Errorf("load nonce: %w", err)
	}
	if nonce == "" {
		return nil, domain.ErrNonceNotFound
	}

	signer, err := RecoverSigner(LoginMessage(req.Address, nonce), req.Signature)
	if err != nil {
		return nil, err
	}
	if signer != common.HexToAddress(req.Address) {
		s.log.Warn("login signature mismatch", zap.String("address", req.Address), zap.String("signer", signer.Hex()))
		return nil, domain.ErrSignerMismatch
	}

	address := strings.ToLower(signer.Hex())
	role := domain.RoleUser
	if slices.Contains(s.admins, address) {
		role = domain.RoleAdmin
	}
	token, err := s.jwtService.GenerateTokenUser(address, role)
	if err != nil {
		return nil, err
	}
	s.log.Info("wallet logged in", zap.String("address", address), zap.String("role", role))
	return &domain.LoginResponse{Token: token, Address: address, Role: role}, nil
}

// RecoverSigner returns the address that produced a personal_sign signature
// over message. Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, domain.ErrInvalidSignature
	}
	sig = slices.Clone(sig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, domain.ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}
