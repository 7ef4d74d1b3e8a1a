package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// TokenResponse carries an issued JWT and its expiry.
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Expiration time.Time `json:"expiration"`
}

// Claims is the JWT claims structure issued to account holders.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// WalletProvisioner creates the account's cash wallet during signup.
type WalletProvisioner interface {
	CreateWallet(ctx context.Context, ownerID string) error
}

// Service is the account directory: signup, verification, suspension and the
// token issuing that the HTTP layer relies on. Every transition is recorded
// in the account's append-only audit trail.
type Service struct {
	repo      Repository
	wallets   WalletProvisioner
	jwtSecret []byte
}

func NewService(repo Repository, wallets WalletProvisioner, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		wallets:   wallets,
		jwtSecret: []byte(jwtSecret),
	}
}

// Signup registers a new PENDING account. Email must be unused.
func (s *Service) Signup(ctx context.Context, email, name, password string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, types.NewValidationError("a valid email is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, types.NewValidationError("name is required")
	}
	if len(password) < 8 {
		return nil, types.NewValidationError("password must be at least 8 characters")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, types.NewStateError("an account already exists for %s", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &Account{
		AccountID:    uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		State:        StatePending,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	if err := s.wallets.CreateWallet(ctx, account.AccountID); err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %w", err)
	}
	s.audit(ctx, account.AccountID, EventAccountCreated, map[string]interface{}{
		"source": "self-service",
		"state":  account.State,
	})

	log.Info().
		Str("account_id", account.AccountID).
		Str("state", account.State).
		Msg("account created")

	return account, nil
}

// VerifyAccount moves a PENDING account to ACTIVE.
func (s *Service) VerifyAccount(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.findRequired(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.State != StatePending {
		return nil, types.NewStateError("account is not pending verification")
	}
	account.State = StateActive
	account.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	s.audit(ctx, account.AccountID, EventAccountActivated, map[string]interface{}{"state": account.State})
	return account, nil
}

// Suspend disables trading and deposits for the account.
func (s *Service) Suspend(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.findRequired(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.State != StateActive {
		return nil, types.NewStateError("only active accounts can be suspended")
	}
	account.State = StateSuspended
	account.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	s.audit(ctx, account.AccountID, EventAccountSuspended, map[string]interface{}{"state": account.State})
	return account, nil
}

// Reactivate restores a suspended account to ACTIVE.
func (s *Service) Reactivate(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.findRequired(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.State != StateSuspended {
		return nil, types.NewStateError("only suspended accounts can be reactivated")
	}
	account.State = StateActive
	account.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}
	s.audit(ctx, account.AccountID, EventAccountReactivated, map[string]interface{}{"state": account.State})
	return account, nil
}

// FindAccount returns the account or (nil, nil) when unknown.
func (s *Service) FindAccount(ctx context.Context, accountID string) (*Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

// ListAuditEntries returns the account's append-only audit trail.
func (s *Service) ListAuditEntries(ctx context.Context, accountID string) ([]AuditEntry, error) {
	if _, err := s.findRequired(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListAudit(ctx, accountID)
}

// audit appends a transition record. The trail is best-effort: a failed
// append is logged without failing the transition.
func (s *Service) audit(ctx context.Context, accountID, eventType string, payload map[string]interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("failed to encode audit payload")
		return
	}

	entry := &AuditEntry{
		AccountID: accountID,
		EventType: eventType,
		Payload:   string(raw),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("account_id", accountID).
			Str("event_type", eventType).
			Msg("failed to append account audit entry")
	}
}

// Login verifies credentials and issues a JWT valid for 24 hours.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiration := time.Now().Add(24 * time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		AccountID: account.AccountID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{Token: tokenString, Expiration: expiration}, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func (s *Service) findRequired(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, types.NewNotFoundError("account not found")
	}
	return account, nil
}
