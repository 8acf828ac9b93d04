package criteria

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/pkg/money"
)

// Service handles criteria version management
type Service struct {
	repo        *Repository
	events      *events.Manager
	validate    *validator.Validate
	maxVersions int
	log         zerolog.Logger
}

// ServiceConfig holds criteria service dependencies
type ServiceConfig struct {
	Repo        *Repository
	Events      *events.Manager
	MaxVersions int
	Log         zerolog.Logger
}

// NewService creates a new criteria service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:        cfg.Repo,
		events:      cfg.Events,
		validate:    validator.New(),
		maxVersions: cfg.MaxVersions,
		log:         cfg.Log.With().Str("service", "criteria").Logger(),
	}
}

// CriterionInput is one rule in a version creation payload. Thresholds are
// decimal strings; which ones are required depends on the operator.
type CriterionInput struct {
	Name         string  `json:"name" validate:"required,max=200"`
	MetricKey    string  `json:"metric_key" validate:"required,max=100"`
	Operator     string  `json:"operator" validate:"required,oneof=gte lte eq range"`
	Threshold    *string `json:"threshold"`
	ThresholdMin *string `json:"threshold_min"`
	ThresholdMax *string `json:"threshold_max"`
	Points       int64   `json:"points"`
}

// CreateVersionInput is the payload for creating a criteria version
type CreateVersionInput struct {
	Name         string           `json:"name" validate:"required,max=200"`
	TargetMarket string           `json:"target_market" validate:"omitempty,max=50"`
	Criteria     []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

// CreateVersion validates and stores a new immutable criteria version
func (s *Service) CreateVersion(userID string, input CreateVersionInput) (*Version, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, domain.NewValidation("invalid criteria payload: %v", err)
	}

	count, err := s.repo.CountVersions(userID)
	if err != nil {
		return nil, err
	}
	if s.maxVersions > 0 && count >= s.maxVersions {
		return nil, domain.NewLimitExceeded("criteria version limit of %d reached", s.maxVersions)
	}

	version := &Version{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         input.Name,
		TargetMarket: input.TargetMarket,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	for i, in := range input.Criteria {
		criterion, err := buildCriterion(in)
		if err != nil {
			return nil, domain.NewValidation("criterion %d (%s): %v", i+1, in.Name, err)
		}
		version.Criteria = append(version.Criteria, criterion)
	}

	if err := s.repo.CreateVersion(version); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("version_id", version.ID).
		Str("user_id", userID).
		Int("criteria", len(version.Criteria)).
		Msg("Criteria version created")

	return version, nil
}

// GetVersion returns one of the user's versions
func (s *Service) GetVersion(userID, versionID string) (*Version, error) {
	version, err := s.repo.GetVersion(versionID)
	if err != nil {
		return nil, err
	}
	if version == nil || version.UserID != userID {
		return nil, domain.NewNotFound("criteria version not found")
	}
	return version, nil
}

// ListVersions returns all of the user's versions, newest first
func (s *Service) ListVersions(userID string) ([]Version, error) {
	return s.repo.ListVersions(userID)
}

// DeleteVersion removes a version. Versions referenced by score history are
// soft-deleted so historical scores keep resolving; unreferenced versions are
// removed outright.
func (s *Service) DeleteVersion(userID, versionID string) error {
	version, err := s.GetVersion(userID, versionID)
	if err != nil {
		return err
	}

	hasHistory, err := s.repo.HasHistory(version.ID)
	if err != nil {
		return err
	}
	if hasHistory {
		return s.repo.Deactivate(version.ID)
	}
	return s.repo.Delete(version.ID)
}

// CopyVersion duplicates an existing version under a new name so the copy can
// serve as the starting point for the next revision.
func (s *Service) CopyVersion(userID, versionID, newName string) (*Version, error) {
	source, err := s.GetVersion(userID, versionID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountVersions(userID)
	if err != nil {
		return nil, err
	}
	if s.maxVersions > 0 && count >= s.maxVersions {
		return nil, domain.NewLimitExceeded("criteria version limit of %d reached", s.maxVersions)
	}

	name := newName
	if name == "" {
		name = source.Name + " (copy)"
	}

	copied := &Version{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         name,
		TargetMarket: source.TargetMarket,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	for _, c := range source.Criteria {
		c.ID = uuid.New().String()
		copied.Criteria = append(copied.Criteria, c)
	}

	if err := s.repo.CreateVersion(copied); err != nil {
		return nil, err
	}

	s.events.Emit(events.CriteriaVersionCopied, "criteria", "", map[string]interface{}{
		"source_version_id": source.ID,
		"new_version_id":    copied.ID,
	})

	return copied, nil
}

// buildCriterion validates operator/threshold consistency and parses the
// decimal strings.
func buildCriterion(in CriterionInput) (Criterion, error) {
	c := Criterion{
		ID:        uuid.New().String(),
		Name:      in.Name,
		MetricKey: in.MetricKey,
		Operator:  Operator(in.Operator),
		Points:    in.Points,
	}

	if in.Points <= 0 {
		return c, fmt.Errorf("points must be positive")
	}

	switch c.Operator {
	case OpGTE, OpLTE, OpEQ:
		if in.Threshold == nil {
			return c, fmt.Errorf("operator %q requires a threshold", in.Operator)
		}
		threshold, err := money.Parse(*in.Threshold)
		if err != nil {
			return c, fmt.Errorf("threshold is not a decimal string: %v", err)
		}
		c.Threshold = &threshold

	case OpRange:
		if in.ThresholdMin == nil || in.ThresholdMax == nil {
			return c, fmt.Errorf("operator range requires threshold_min and threshold_max")
		}
		min, err := money.Parse(*in.ThresholdMin)
		if err != nil {
			return c, fmt.Errorf("threshold_min is not a decimal string: %v", err)
		}
		max, err := money.Parse(*in.ThresholdMax)
		if err != nil {
			return c, fmt.Errorf("threshold_max is not a decimal string: %v", err)
		}
		if min.Cmp(max) > 0 {
			return c, fmt.Errorf("threshold_min must not exceed threshold_max")
		}
		c.ThresholdMin = &min
		c.ThresholdMax = &max

	default:
		return c, fmt.Errorf("unknown operator %q", in.Operator)
	}

	return c, nil
}
