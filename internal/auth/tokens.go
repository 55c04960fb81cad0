package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/docstore"
	"storefront/internal/models"
)

const refreshTokensCollection = "refreshTokens"

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (p *Provider) signAccessToken(id Identity, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"userId": id.UserID,
		"email":  id.Email,
		"iat":    now.Unix(),
		"exp":    now.Add(p.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *Provider) parseAccessToken(raw string) (Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", newError(KindInvalidToken), err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, newError(KindInvalidToken)
	}
	userID, _ := claims["userId"].(string)
	if strings.TrimSpace(userID) == "" {
		return Identity{}, newError(KindInvalidToken)
	}
	email, _ := claims["email"].(string)
	return Identity{UserID: userID, Email: email}, nil
}

// issueTokens signs an access token and returns the writes that persist a fresh refresh token.
func (p *Provider) issueTokens(id Identity) (Tokens, string, []docstore.Write, error) {
	now := p.now()
	access, err := p.signAccessToken(id, now)
	if err != nil {
		return Tokens{}, "", nil, fmt.Errorf("sign access token: %w", err)
	}

	plain, err := generateRefreshString()
	if err != nil {
		return Tokens{}, "", nil, err
	}
	hash := hashToken(plain)

	fields, err := docstore.Encode(models.RefreshToken{
		UserID:    id.UserID,
		Email:     id.Email,
		ExpiresAt: now.Add(p.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return Tokens{}, "", nil, err
	}

	tokens := Tokens{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresIn:    int64(p.accessTTL.Seconds()),
	}
	writes := []docstore.Write{docstore.CreateWrite(refreshTokenPath(hash), fields)}
	return tokens, hash, writes, nil
}

func refreshTokenPath(hash string) string {
	return docstore.Join(refreshTokensCollection, hash)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.New("could not generate refresh token")
	}
	return hex.EncodeToString(buf), nil
}
