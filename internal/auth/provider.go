// Package auth is the session provider: accounts, password sign-in, JWT access tokens,
// rotating refresh tokens and sign-in/sign-out notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/docstore"
	"storefront/internal/models"
	"storefront/internal/profile"
)

const (
	accountsCollection = "accounts"
	minPasswordLength  = 6
)

type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type Session struct {
	Identity Identity `json:"user"`
	Tokens   Tokens   `json:"tokens"`
}

// Listener is told about every sign-in and sign-out.
type Listener func(uid string, signedIn bool)

type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Provider struct {
	store      docstore.Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	validate   *validator.Validate

	mu           sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

func NewProvider(store docstore.Store, opts Options) *Provider {
	return &Provider{
		store:      store,
		secret:     []byte(opts.Secret),
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        time.Now,
		validate:   validator.New(),
		listeners:  make(map[int]Listener),
	}
}

// WithClock replaces the clock used for token issue and expiry checks.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

func accountPath(email string) string {
	return docstore.Join(accountsCollection, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Provider) checkEmail(email string) error {
	if email == "" || strings.Contains(email, "/") {
		return newError(KindInvalidEmail)
	}
	if err := p.validate.Var(email, "email"); err != nil {
		return newError(KindInvalidEmail)
	}
	return nil
}

// SignUp creates the account and the user profile in one batch and signs the user in.
func (p *Provider) SignUp(ctx context.Context, email, password, confirmPassword, fullName string) (Session, error) {
	if password != confirmPassword {
		return Session{}, apperr.Validation("Passwords do not match!")
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return Session{}, apperr.Validation("Please enter your full name.")
	}

	email = normalizeEmail(email)
	if err := p.checkEmail(email); err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, newError(KindWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	id := Identity{UserID: uuid.NewString(), Email: email}
	account, err := docstore.Encode(models.Account{
		UserID:       id.UserID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	})
	if err != nil {
		return Session{}, err
	}
	userProfile, err := docstore.Encode(models.UserProfile{FullName: fullName, Email: email})
	if err != nil {
		return Session{}, err
	}

	tokens, _, tokenWrites, err := p.issueTokens(id)
	if err != nil {
		return Session{}, err
	}

	writes := append([]docstore.Write{
		docstore.CreateWrite(accountPath(email), account),
		docstore.SetWrite(profile.Path(id.UserID), userProfile),
	}, tokenWrites...)

	if err := p.store.Commit(ctx, writes); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			log.Println("[AUTH] [ERROR] signup email exists:", email)
			return Session{}, newError(KindEmailInUse)
		}
		return Session{}, fmt.Errorf("create account: %w", err)
	}

	log.Println("[AUTH] [INFO] user registered:", email)
	p.notify(id.UserID, true)
	return Session{Identity: id, Tokens: tokens}, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if err := p.checkEmail(email); err != nil {
		return Session{}, err
	}

	doc, err := p.store.Get(ctx, accountPath(email))
	if errors.Is(err, docstore.ErrNotFound) {
		log.Println("[AUTH] [ERROR] login invalid credentials")
		return Session{}, newError(KindInvalidCredential)
	}
	if err != nil {
		return Session{}, fmt.Errorf("load account: %w", err)
	}

	var account models.Account
	if err := doc.DataTo(&account); err != nil {
		return Session{}, fmt.Errorf("decode account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		log.Println("[AUTH] [ERROR] login invalid credentials")
		return Session{}, newError(KindInvalidCredential)
	}

	id := Identity{UserID: account.UserID, Email: account.Email}
	tokens, _, writes, err := p.issueTokens(id)
	if err != nil {
		return Session{}, err
	}
	if err := p.store.Commit(ctx, writes); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}

	log.Println("[AUTH] [INFO] user login succeeded:", email)
	p.notify(id.UserID, true)
	return Session{Identity: id, Tokens: tokens}, nil
}

func (p *Provider) loadRefreshToken(ctx context.Context, plain string) (string, models.RefreshToken, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return "", models.RefreshToken{}, newError(KindInvalidToken)
	}
	hash := hashToken(plain)

	doc, err := p.store.Get(ctx, refreshTokenPath(hash))
	if errors.Is(err, docstore.ErrNotFound) {
		return "", models.RefreshToken{}, newError(KindInvalidToken)
	}
	if err != nil {
		return "", models.RefreshToken{}, fmt.Errorf("load refresh token: %w", err)
	}

	var token models.RefreshToken
	if err := doc.DataTo(&token); err != nil {
		return "", models.RefreshToken{}, fmt.Errorf("decode refresh token: %w", err)
	}
	if token.Revoked {
		return "", models.RefreshToken{}, newError(KindInvalidToken)
	}
	return hash, token, nil
}

// Refresh revokes the presented refresh token and issues a new pair.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash, stored, err := p.loadRefreshToken(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}

	if p.now().After(stored.ExpiresAt) {
		if err := p.store.Update(ctx, refreshTokenPath(hash), docstore.Fields{"revoked": true}); err != nil {
			log.Println("[AUTH] [ERROR] revoke expired refresh token failed:", err)
		}
		return Session{}, newError(KindInvalidToken)
	}

	id := Identity{UserID: stored.UserID, Email: stored.Email}
	tokens, newHash, writes, err := p.issueTokens(id)
	if err != nil {
		return Session{}, err
	}
	writes = append(writes, docstore.UpdateWrite(refreshTokenPath(hash), docstore.Fields{
		"revoked":         true,
		"replacedByToken": newHash,
	}))
	if err := p.store.Commit(ctx, writes); err != nil {
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	return Session{Identity: id, Tokens: tokens}, nil
}

// SignOut revokes the refresh token and tells listeners the user is gone.
func (p *Provider) SignOut(ctx context.Context, refreshToken string) error {
	hash, stored, err := p.loadRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := p.store.Update(ctx, refreshTokenPath(hash), docstore.Fields{"revoked": true}); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	log.Println("[AUTH] [INFO] user logged out:", stored.Email)
	p.notify(stored.UserID, false)
	return nil
}

func (p *Provider) Verify(accessToken string) (Identity, error) {
	return p.parseAccessToken(strings.TrimSpace(accessToken))
}

// OnStateChange registers l and returns a function that removes it. Removing twice is a no-op.
func (p *Provider) OnStateChange(l Listener) func() {
	p.mu.Lock()
	p.nextListener++
	id := p.nextListener
	p.listeners[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) notify(uid string, signedIn bool) {
	p.mu.Lock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(uid, signedIn)
	}
}
