// Package owners provisions drivers, authenticates their API keys and
// manages profile preferences.
package owners

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/domain/models"
	"github.com/kmledger/kmledger/internal/domain/validation"
	"github.com/kmledger/kmledger/internal/repository"
)

const (
	secretBytes  = 24
	authCacheTTL = 5 * time.Minute
	authCacheMax = 4096
)

// Store is the persistence the service needs.
type Store interface {
	repository.OwnerStore
	DeleteOwnerBenchmarkEntries(ctx context.Context, ownerID string) (int64, error)
}

// OwnerInput creates an owner.
type OwnerInput struct {
	Name        string             `json:"name" validate:"required,max=120"`
	Phone       string             `json:"phone" validate:"omitempty,e164"`
	Locale      string             `json:"locale" validate:"max=64"`
	VehicleType string             `json:"vehicleType" validate:"omitempty,oneof=car motorcycle bicycle van"`
	TaxDocument string             `json:"taxDocument" validate:"max=32"`
	Preferences models.Preferences `json:"preferences"`
}

// ProfileInput patches an owner. Nil fields are left unchanged.
type ProfileInput struct {
	Name                    *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone                   *string `json:"phone" validate:"omitempty,e164"`
	Locale                  *string `json:"locale" validate:"omitempty,max=64"`
	VehicleType             *string `json:"vehicleType" validate:"omitempty,oneof=car motorcycle bicycle van"`
	TaxDocument             *string `json:"taxDocument" validate:"omitempty,max=32"`
	ParticipateBenchmarking *bool   `json:"participateBenchmarking"`
	NotifyWhatsApp          *bool   `json:"notifyWhatsApp"`
	SpreadsheetID           *string `json:"spreadsheetId" validate:"omitempty,max=128"`
}

// Service manages owners.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	cost   int
	cache  *expirable.LRU[string, string]
}

// NewService wires a new owners service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
		cache:  expirable.NewLRU[string, string](authCacheMax, nil, authCacheTTL),
	}
}

// Create provisions an owner and returns its API key. The key is only
// available here; the store keeps a bcrypt hash of its secret part.
func (s *Service) Create(ctx context.Context, in OwnerInput) (models.Owner, string, error) {
	if err := validation.Struct(in); err != nil {
		return models.Owner{}, "", err
	}

	secret, err := newSecret()
	if err != nil {
		return models.Owner{}, "", fmt.Errorf("generate api key: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return models.Owner{}, "", fmt.Errorf("hash api key: %w", err)
	}

	now := s.now().UTC()
	owner := models.Owner{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Phone:       in.Phone,
		Locale:      in.Locale,
		VehicleType: in.VehicleType,
		TaxDocument: in.TaxDocument,
		Preferences: in.Preferences,
		APIKeyHash:  string(hash),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateOwner(ctx, owner); err != nil {
		return models.Owner{}, "", fmt.Errorf("create owner: %w", err)
	}
	s.logger.Info("owner created", zap.String("owner_id", owner.ID))
	return owner, owner.ID + "." + secret, nil
}

// Authenticate resolves an API key of the form <ownerID>.<secret>.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (models.Owner, error) {
	ownerID, secret, ok := strings.Cut(apiKey, ".")
	if !ok || ownerID == "" || secret == "" {
		return models.Owner{}, errs.Unauthorized("malformed api key")
	}

	digest := sha256.Sum256([]byte(apiKey))
	cacheKey := hex.EncodeToString(digest[:])

	owner, err := s.store.GetOwner(ctx, ownerID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return models.Owner{}, errs.Unauthorized("invalid api key")
		}
		return models.Owner{}, fmt.Errorf("load owner: %w", err)
	}

	if cached, ok := s.cache.Get(cacheKey); ok && cached == owner.APIKeyHash {
		return owner, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.APIKeyHash), []byte(secret)); err != nil {
		return models.Owner{}, errs.Unauthorized("invalid api key")
	}
	s.cache.Add(cacheKey, owner.APIKeyHash)
	return owner, nil
}

// Get loads an owner.
func (s *Service) Get(ctx context.Context, id string) (models.Owner, error) {
	owner, err := s.store.GetOwner(ctx, id)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return models.Owner{}, err
		}
		return models.Owner{}, fmt.Errorf("get owner: %w", err)
	}
	return owner, nil
}

// List returns every owner.
func (s *Service) List(ctx context.Context) ([]models.Owner, error) {
	out, err := s.store.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return out, nil
}

// UpdateProfile applies a patch. Opting out of benchmarking deletes every
// entry the owner contributed.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (models.Owner, error) {
	if err := validation.Struct(in); err != nil {
		return models.Owner{}, err
	}
	owner, err := s.Get(ctx, id)
	if err != nil {
		return models.Owner{}, err
	}

	wasParticipating := owner.Preferences.ParticipateBenchmarking
	setString(&owner.Name, in.Name)
	setString(&owner.Phone, in.Phone)
	setString(&owner.Locale, in.Locale)
	setString(&owner.VehicleType, in.VehicleType)
	setString(&owner.TaxDocument, in.TaxDocument)
	setString(&owner.Preferences.SpreadsheetID, in.SpreadsheetID)
	if in.ParticipateBenchmarking != nil {
		owner.Preferences.ParticipateBenchmarking = *in.ParticipateBenchmarking
	}
	if in.NotifyWhatsApp != nil {
		owner.Preferences.NotifyWhatsApp = *in.NotifyWhatsApp
	}
	owner.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateOwner(ctx, owner); err != nil {
		return models.Owner{}, fmt.Errorf("update owner: %w", err)
	}

	if wasParticipating && !owner.Preferences.ParticipateBenchmarking {
		n, err := s.store.DeleteOwnerBenchmarkEntries(ctx, owner.ID)
		if err != nil {
			return models.Owner{}, fmt.Errorf("delete benchmark entries: %w", err)
		}
		s.logger.Info("benchmark entries removed after opt-out", zap.String("owner_id", owner.ID), zap.Int64("entries", n))
	}
	return owner, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
