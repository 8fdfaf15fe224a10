package utilities

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

// Service manages the lookup values offered on the upload form.
type Service struct {
	repo   repository.UtilityRepository
	logger *slog.Logger
}

// NewService creates a new utilities service.
func NewService(repo repository.UtilityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func parseType(raw string) (constants.UtilityType, error) {
	t, ok := constants.ParseUtilityType(raw)
	if !ok {
		return "", fmt.Errorf("%w: utility type must be one of %s", common.ErrValidation,
			strings.Join(constants.UtilityTypesAsStrings(), ", "))
	}
	return t, nil
}

// List returns active values, optionally of one type, ordered by type then value.
func (s *Service) List(ctx context.Context, rawType string) ([]*entity.Utility, error) {
	var typ string
	if strings.TrimSpace(rawType) != "" {
		t, err := parseType(rawType)
		if err != nil {
			return nil, err
		}
		typ = string(t)
	}
	out, err := s.repo.List(ctx, typ, true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*entity.Utility{}
	}
	return out, nil
}

// Get returns one utility by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Utility, error) {
	return s.repo.Get(ctx, id)
}

// CreateRequest represents utility creation parameters.
type CreateRequest struct {
	Type        string
	Value       string
	Description string
}

// Create adds a new active value. Duplicates of (type, value) fail with ErrConflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*entity.Utility, error) {
	validator := common.NewValidator()
	validator.Field("type", req.Type, common.Required)
	validator.Field("value", req.Value, common.Required, common.MaxLen(200))
	validator.Field("description", req.Description, common.MaxLen(1000))
	if err := validator.Error(); err != nil {
		return nil, err
	}
	typ, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}

	u := &entity.Utility{
		Type:        string(typ),
		Value:       strings.TrimSpace(req.Value),
		Description: strings.TrimSpace(req.Description),
		Active:      true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Warn("utility create failed", "type", u.Type, "value", u.Value, "error", err)
		return nil, err
	}
	s.logger.Info("utility created successfully", "utility_id", u.ID, "type", u.Type, "value", u.Value)
	return u, nil
}

// UpdateRequest holds optional changes. Nil fields are left as they are.
type UpdateRequest struct {
	Value       *string
	Description *string
	Active      *bool
}

// Update applies the set fields of req to the utility.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*entity.Utility, error) {
	validator := common.NewValidator()
	if req.Value != nil {
		validator.Field("value", req.Value, common.Required, common.MaxLen(200))
	}
	validator.Field("description", req.Description, common.MaxLen(1000))
	if err := validator.Error(); err != nil {
		return nil, err
	}

	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Value != nil {
		u.Value = strings.TrimSpace(*req.Value)
	}
	if req.Description != nil {
		u.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("utility updated successfully", "utility_id", u.ID)
	return u, nil
}

// Delete removes a utility. Documents keep the value they were filed with.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("utility deleted successfully", "utility_id", id)
	return nil
}
