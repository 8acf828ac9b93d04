package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/clients/marketdata"
	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/modules/rates"
	"github.com/aristath/folioplan/pkg/money"
)

// CurrencyConverter converts amounts into the portfolio's base currency.
type CurrencyConverter interface {
	Convert(amount money.Amount, from, to string, asOf time.Time, correlationID string) (*rates.Conversion, error)
}

// QuoteFetcher is the slice of the market data client the price sync needs.
type QuoteFetcher interface {
	GetQuotes(symbols []string) ([]marketdata.Quote, error)
}

// Service handles holdings, asset classes and portfolio valuation
type Service struct {
	repo      *Repository
	converter CurrencyConverter
	quotes    QuoteFetcher
	validate  *validator.Validate
	log       zerolog.Logger
}

// ServiceConfig holds portfolio service dependencies
type ServiceConfig struct {
	Repo      *Repository
	Converter CurrencyConverter
	Quotes    QuoteFetcher
	Log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		converter: cfg.Converter,
		quotes:    cfg.Quotes,
		validate:  validator.New(),
		log:       cfg.Log.With().Str("service", "portfolio").Logger(),
	}
}

// ClassInput is the payload for creating an asset class. Targets are percent
// decimal strings; MinAllocationValue is in the user's base currency.
type ClassInput struct {
	Name               string `json:"name" validate:"required,max=200"`
	TargetMin          string `json:"target_min" validate:"required"`
	TargetMax          string `json:"target_max" validate:"required"`
	MaxAssets          int    `json:"max_assets" validate:"gte=0"`
	MinAllocationValue string `json:"min_allocation_value"`
}

// CreateClass validates and stores a new asset class
func (s *Service) CreateClass(userID string, input ClassInput) (*AssetClass, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, domain.NewValidation("invalid asset class payload: %v", err)
	}

	min, err := parsePercent(input.TargetMin)
	if err != nil {
		return nil, domain.NewValidation("target_min: %v", err)
	}
	max, err := parsePercent(input.TargetMax)
	if err != nil {
		return nil, domain.NewValidation("target_max: %v", err)
	}
	if min.Cmp(max) > 0 {
		return nil, domain.NewValidation("target_min must not exceed target_max")
	}

	minValue := input.MinAllocationValue
	if minValue == "" {
		minValue = "0"
	}
	if _, err := money.Parse(minValue); err != nil {
		return nil, domain.NewValidation("min_allocation_value must be a decimal string")
	}

	class := &AssetClass{
		ID:                 uuid.New().String(),
		UserID:             userID,
		Name:               input.Name,
		TargetMin:          min.String(),
		TargetMax:          max.String(),
		MaxAssets:          input.MaxAssets,
		MinAllocationValue: minValue,
		CreatedAt:          time.Now(),
	}

	if err := s.repo.CreateClass(class); err != nil {
		return nil, err
	}
	return class, nil
}

// ListClasses returns the user's asset classes
func (s *Service) ListClasses(userID string) ([]AssetClass, error) {
	return s.repo.ListClasses(userID)
}

// DeleteClass removes one of the user's asset classes
func (s *Service) DeleteClass(userID, classID string) error {
	class, err := s.repo.GetClass(classID)
	if err != nil {
		return err
	}
	if class == nil || class.UserID != userID {
		return domain.NewNotFound("asset class not found")
	}
	return s.repo.DeleteClass(classID)
}

// AssetInput is the payload for adding or updating a holding
type AssetInput struct {
	Symbol       string  `json:"symbol" validate:"required,max=20"`
	Name         string  `json:"name" validate:"max=200"`
	AssetClassID *string `json:"asset_class_id"`
	Quantity     string  `json:"quantity" validate:"required"`
	Currency     string  `json:"currency" validate:"required,len=3,alpha"`
	IsIgnored    bool    `json:"is_ignored"`
}

// AddAsset validates and stores a new holding
func (s *Service) AddAsset(userID string, input AssetInput) (*Asset, error) {
	if err := s.validateAssetInput(userID, &input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetAssetBySymbol(userID, input.Symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflict("a holding for %s already exists", input.Symbol)
	}

	asset := &Asset{
		ID:           uuid.New().String(),
		UserID:       userID,
		Symbol:       input.Symbol,
		Name:         input.Name,
		AssetClassID: input.AssetClassID,
		Quantity:     input.Quantity,
		Currency:     strings.ToUpper(input.Currency),
		IsIgnored:    input.IsIgnored,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.CreateAsset(asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// UpdateAsset applies new values to an existing holding
func (s *Service) UpdateAsset(userID, assetID string, input AssetInput) (*Asset, error) {
	asset, err := s.GetAsset(userID, assetID)
	if err != nil {
		return nil, err
	}

	if err := s.validateAssetInput(userID, &input); err != nil {
		return nil, err
	}

	asset.Name = input.Name
	asset.AssetClassID = input.AssetClassID
	asset.Quantity = input.Quantity
	asset.Currency = strings.ToUpper(input.Currency)
	asset.IsIgnored = input.IsIgnored

	if err := s.repo.UpdateAsset(asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// GetAsset returns one of the user's holdings
func (s *Service) GetAsset(userID, assetID string) (*Asset, error) {
	asset, err := s.repo.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil || asset.UserID != userID {
		return nil, domain.NewNotFound("asset not found")
	}
	return asset, nil
}

// ListAssets returns all of the user's holdings
func (s *Service) ListAssets(userID string) ([]Asset, error) {
	return s.repo.ListAssets(userID)
}

// DeleteAsset removes one of the user's holdings
func (s *Service) DeleteAsset(userID, assetID string) error {
	if _, err := s.GetAsset(userID, assetID); err != nil {
		return err
	}
	return s.repo.DeleteAsset(assetID)
}

// SyncPrices fetches quotes for every held symbol and stores them on the
// holdings. Returns the number of symbols updated.
func (s *Service) SyncPrices() (int, error) {
	symbols, err := s.repo.ListSymbols()
	if err != nil {
		return 0, err
	}
	if len(symbols) == 0 {
		return 0, nil
	}

	quotes, err := s.quotes.GetQuotes(symbols)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	updated := 0
	for _, q := range quotes {
		if err := s.repo.UpdatePrice(q.Symbol, q.Close, q.Currency, q.PriceDate); err != nil {
			s.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("Failed to store price")
			continue
		}
		updated++
	}

	s.log.Info().Int("updated", updated).Int("held", len(symbols)).Msg("Prices synced")
	return updated, nil
}

// Valuation values the portfolio in the base currency and breaks it down by
// asset class. Ignored holdings count toward the total but toward no class;
// holdings without a synced price are reported as unpriced and excluded.
func (s *Service) Valuation(userID, baseCurrency string, asOf time.Time, correlationID string) (*Valuation, error) {
	assets, err := s.repo.ListAssets(userID)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListClasses(userID)
	if err != nil {
		return nil, err
	}

	valuation := &Valuation{
		BaseCurrency: baseCurrency,
		AsOf:         asOf,
	}

	total := money.Zero()
	ignoredTotal := money.Zero()
	classValues := make(map[string]money.Amount, len(classes))
	classCounts := make(map[string]int, len(classes))

	for _, asset := range assets {
		if asset.LastPrice == nil {
			valuation.UnpricedAssets = append(valuation.UnpricedAssets, asset.Symbol)
			continue
		}

		value, err := s.assetValue(&asset, baseCurrency, asOf, correlationID)
		if err != nil {
			return nil, err
		}

		total = total.Add(value)
		if asset.IsIgnored {
			ignoredTotal = ignoredTotal.Add(value)
			continue
		}
		if asset.AssetClassID != nil {
			classValues[*asset.AssetClassID] = classValues[*asset.AssetClassID].Add(value)
			classCounts[*asset.AssetClassID]++
		}
	}

	valuation.TotalValue = total.String()
	valuation.IgnoredValue = ignoredTotal.String()

	hundred := money.MustParse("100")
	targetMinSum := money.Zero()

	for _, class := range classes {
		targetMin := money.MustParse(class.TargetMin)
		targetMax := money.MustParse(class.TargetMax)
		targetMinSum = targetMinSum.Add(targetMin)

		value := classValues[class.ID]
		percent := money.Zero()
		if !total.IsZero() {
			p, err := value.Mul(hundred).Div(total)
			if err != nil {
				return nil, err
			}
			percent = p
		}

		valuation.Classes = append(valuation.Classes, ClassAllocation{
			ClassID:     class.ID,
			Name:        class.Name,
			Value:       value.String(),
			Percent:     percent.StringFixed(2),
			TargetMin:   class.TargetMin,
			TargetMax:   class.TargetMax,
			Underweight: percent.Cmp(targetMin) < 0,
			Overweight:  percent.Cmp(targetMax) > 0,
			AssetCount:  classCounts[class.ID],
		})
	}

	if targetMinSum.Cmp(hundred) > 0 {
		valuation.Warnings = append(valuation.Warnings,
			fmt.Sprintf("asset class minimum targets sum to %s%%, which exceeds 100%%", targetMinSum.String()))
	}

	return valuation, nil
}

// assetValue converts quantity x last price into the base currency.
func (s *Service) assetValue(asset *Asset, baseCurrency string, asOf time.Time, correlationID string) (money.Amount, error) {
	quantity, err := money.Parse(asset.Quantity)
	if err != nil {
		return money.Amount{}, fmt.Errorf("holding %s has a non-decimal quantity: %w", asset.Symbol, err)
	}
	price, err := money.Parse(*asset.LastPrice)
	if err != nil {
		return money.Amount{}, fmt.Errorf("holding %s has a non-decimal price: %w", asset.Symbol, err)
	}

	value := quantity.Mul(price)

	priceCurrency := asset.PriceCurrency
	if priceCurrency == "" {
		priceCurrency = asset.Currency
	}

	conversion, err := s.converter.Convert(value, priceCurrency, baseCurrency, asOf, correlationID)
	if err != nil {
		return money.Amount{}, err
	}
	return money.Parse(conversion.Converted)
}

func (s *Service) validateAssetInput(userID string, input *AssetInput) error {
	if err := s.validate.Struct(*input); err != nil {
		return domain.NewValidation("invalid asset payload: %v", err)
	}

	quantity, err := money.Parse(input.Quantity)
	if err != nil {
		return domain.NewValidation("quantity must be a decimal string")
	}
	if quantity.IsNegative() {
		return domain.NewValidation("quantity must not be negative")
	}

	if input.AssetClassID != nil {
		class, err := s.repo.GetClass(*input.AssetClassID)
		if err != nil {
			return err
		}
		if class == nil || class.UserID != userID {
			return domain.NewValidation("asset class does not exist")
		}
	}

	input.Symbol = strings.ToUpper(strings.TrimSpace(input.Symbol))
	return nil
}

func parsePercent(s string) (money.Amount, error) {
	p, err := money.Parse(s)
	if err != nil {
		return money.Amount{}, fmt.Errorf("must be a decimal string")
	}
	if p.IsNegative() || p.Cmp(money.MustParse("100")) > 0 {
		return money.Amount{}, fmt.Errorf("must be between 0 and 100")
	}
	return p, nil
}
