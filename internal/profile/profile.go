// Package profile manages users/{uid}: full name, email and the optional delivery address.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/docstore"
	"storefront/internal/models"
)

var ErrNotFound = errors.New("profile not found")

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

func Path(uid string) string {
	return docstore.Join("users", uid)
}

func (s *Service) Get(ctx context.Context, uid string) (models.UserProfile, error) {
	doc, err := s.store.Get(ctx, Path(uid))
	if errors.Is(err, docstore.ErrNotFound) {
		return models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}

	var p models.UserProfile
	if err := doc.DataTo(&p); err != nil {
		return models.UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	p.ID = doc.ID
	return p, nil
}

func (s *Service) Create(ctx context.Context, uid, fullName, email string) (models.UserProfile, error) {
	p := models.UserProfile{
		ID:       uid,
		FullName: strings.TrimSpace(fullName),
		Email:    strings.ToLower(strings.TrimSpace(email)),
	}
	fields, err := docstore.Encode(p)
	if err != nil {
		return models.UserProfile{}, err
	}
	if err := s.store.Set(ctx, Path(uid), fields); err != nil {
		return models.UserProfile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// SetAddress stores a free-text delivery address. Only emptiness is validated.
func (s *Service) SetAddress(ctx context.Context, uid, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", apperr.Validation("Please enter your address!")
	}

	err := s.store.Update(ctx, Path(uid), docstore.Fields{"address": address})
	if errors.Is(err, docstore.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("save address: %w", err)
	}
	return address, nil
}
