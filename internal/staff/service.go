package staff

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

// Service defines business logic related to staff accounts.
type Service interface {
	Register(ctx context.Context, p RegisterParams) (*Staff, error)
	Login(ctx context.Context, email, password string) (*Staff, error)
	GetByID(ctx context.Context, id string) (*Staff, error)
	ListByHotel(ctx context.Context, hotelID string) ([]*Staff, error)
}

type RegisterParams struct {
	HotelID     string
	Email       string
	Password    string
	DisplayName string
	Role        string
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher

	minPasswordLength int
}

// NewService creates a new staff Service.
func NewService(repo Repository, hasher auth.PasswordHasher) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, p RegisterParams) (*Staff, error) {
	cleanEmail := normalizeEmail(p.Email)
	if cleanEmail == "" {
		return nil, apperror.Validation("email is required")
	}
	if len(p.Password) < s.minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", s.minPasswordLength))
	}
	if p.Role != RoleManager && p.Role != RoleFrontDesk {
		return nil, apperror.Validation("role must be manager or front_desk")
	}

	// Check if email is already used.
	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	m := &Staff{
		HotelID:      p.HotelID,
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(p.DisplayName),
		Role:         p.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}
	return m, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Staff, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	m, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch staff by email: %w", err)
	}

	if !m.IsActive {
		return nil, ErrInactive
	}

	if err := s.hasher.Compare(m.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort; do not fail login if the timestamp update fails.
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, m.ID, now); err != nil {
		log.Printf("update last login for staff %s failed: %v", m.ID, err)
	}

	return m, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Staff, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByHotel(ctx context.Context, hotelID string) ([]*Staff, error) {
	return s.repo.ListByHotel(ctx, hotelID)
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
