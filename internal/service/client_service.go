package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"clientbook/internal/cache"
	apperrors "clientbook/internal/errors"
	"clientbook/internal/model"
	"clientbook/internal/repository"
	"clientbook/internal/storage"
)

const clientCacheTTL = 5 * time.Minute

// CreateClientInput carries the fields for a new client. Foto is the already
// stored upload; the transport layer guarantees its presence, so a nil Foto
// here is trusted, not re-validated.
type CreateClientInput struct {
	Nome      string
	Endereco  string
	Telefone  *string
	Latitude  decimal.NullDecimal
	Longitude decimal.NullDecimal
	Foto      *storage.StoredFile
}

// UpdateClientInput carries partial updates. A nil pointer means the field
// was absent and keeps its prior value; for the coordinates a non-nil pointer
// holding an invalid NullDecimal is an explicit null.
type UpdateClientInput struct {
	Nome      *string
	Endereco  *string
	Telefone  *string
	Latitude  *decimal.NullDecimal
	Longitude *decimal.NullDecimal
	Foto      *storage.StoredFile
}

// ClientService exposes client record operations with photo lifecycle rules:
// a record never references a file that no longer exists, and no stored file
// outlives every record referencing it.
type ClientService interface {
	List(ctx context.Context) ([]model.Client, error)
	GetByID(ctx context.Context, id uint) (*model.Client, error)
	Create(ctx context.Context, ownerID uint, in CreateClientInput) (*model.Client, error)
	Update(ctx context.Context, id uint, in UpdateClientInput) (*model.Client, error)
	Delete(ctx context.Context, id uint) (*model.Client, error)
}

type clientService struct {
	repo   repository.ClientRepository
	photos storage.PhotoStore
	cache  *cache.Client
}

// NewClientService builds a ClientService.
func NewClientService(repo repository.ClientRepository, photos storage.PhotoStore, cache *cache.Client) ClientService {
	return &clientService{repo: repo, photos: photos, cache: cache}
}

func (s *clientService) cacheKey(id uint) string {
	return fmt.Sprintf("cliente:%d", id)
}

func (s *clientService) List(ctx context.Context) ([]model.Client, error) {
	return s.repo.List(ctx)
}

// GetByID retrieves a client with read-through caching.
func (s *clientService) GetByID(ctx context.Context, id uint) (*model.Client, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Client
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}

	if payload, err := json.Marshal(client); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, clientCacheTTL)
	}
	return client, nil
}

// Create persists a new client owned by ownerID. On a validation failure the
// already stored photo is removed before returning; the repository is never
// touched on that path.
func (s *clientService) Create(ctx context.Context, ownerID uint, in CreateClientInput) (*model.Client, error) {
	if strings.TrimSpace(in.Nome) == "" || strings.TrimSpace(in.Endereco) == "" {
		s.discard(ctx, in.Foto)
		return nil, apperrors.ErrValidation
	}

	client := &model.Client{
		UserID:    ownerID,
		Nome:      in.Nome,
		Telefone:  in.Telefone,
		Endereco:  in.Endereco,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if in.Foto != nil {
		client.FotoCaminho = &in.Foto.Path
	}

	if err := s.repo.Create(ctx, client); err != nil {
		s.discard(ctx, in.Foto)
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// Update applies a partial update. A replaced photo's old file is deleted
// only after the row is persisted, so a failed write never orphans the
// record's current photo.
func (s *clientService) Update(ctx context.Context, id uint, in UpdateClientInput) (*model.Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.discard(ctx, in.Foto)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}

	if in.Nome != nil && *in.Nome != "" {
		client.Nome = *in.Nome
	}
	if in.Endereco != nil && *in.Endereco != "" {
		client.Endereco = *in.Endereco
	}
	if in.Telefone != nil && *in.Telefone != "" {
		client.Telefone = in.Telefone
	}
	if in.Latitude != nil {
		client.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		client.Longitude = *in.Longitude
	}

	var oldPhoto *string
	if in.Foto != nil {
		oldPhoto = client.FotoCaminho
		client.FotoCaminho = &in.Foto.Path
	}

	if err := s.repo.Update(ctx, client); err != nil {
		s.discard(ctx, in.Foto)
		return nil, fmt.Errorf("update client: %w", err)
	}

	if oldPhoto != nil {
		if err := s.photos.Remove(ctx, *oldPhoto); err != nil {
			log.Printf("remove replaced photo %s: %v", *oldPhoto, err)
		}
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return client, nil
}

// Delete removes the client's photo file (best-effort) and then the record.
func (s *clientService) Delete(ctx context.Context, id uint) (*model.Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}

	if client.FotoCaminho != nil {
		if err := s.photos.Remove(ctx, *client.FotoCaminho); err != nil {
			log.Printf("remove photo %s: %v", *client.FotoCaminho, err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete client: %w", err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return client, nil
}

// discard removes a freshly stored upload that will not be referenced by any
// record. Failure is logged, never surfaced.
func (s *clientService) discard(ctx context.Context, f *storage.StoredFile) {
	if f == nil {
		return
	}
	if err := s.photos.Remove(ctx, f.Path); err != nil {
		log.Printf("remove uploaded photo %s: %v", f.Path, err)
	}
}
