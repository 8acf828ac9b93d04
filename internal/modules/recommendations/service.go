package recommendations

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/internal/modules/rates"
	"github.com/aristath/folioplan/internal/modules/scoring"
	"github.com/aristath/folioplan/pkg/money"
)

// PortfolioSource supplies holdings, classes and the current valuation.
type PortfolioSource interface {
	ListAssets(userID string) ([]portfolio.Asset, error)
	ListClasses(userID string) ([]portfolio.AssetClass, error)
	Valuation(userID, baseCurrency string, asOf time.Time, correlationID string) (*portfolio.Valuation, error)
}

// ScoreSource supplies the current asset scores.
type ScoreSource interface {
	ListScores(userID string) ([]scoring.AssetScore, error)
}

// Converter converts asset prices into the base currency.
type Converter interface {
	Convert(amount money.Amount, from, to string, asOf time.Time, correlationID string) (*rates.Conversion, error)
}

// Service builds and confirms investment recommendations. New money is
// steered toward underweight asset classes, weighted by how far below target
// each class sits and by how well each asset scores.
type Service struct {
	repo      *Repository
	portfolio PortfolioSource
	scores    ScoreSource
	converter Converter
	events    *events.Manager
	ttl       time.Duration
	log       zerolog.Logger
}

// ServiceConfig holds recommendation service dependencies
type ServiceConfig struct {
	Repo      *Repository
	Portfolio PortfolioSource
	Scores    ScoreSource
	Converter Converter
	Events    *events.Manager
	TTL       time.Duration
	Log       zerolog.Logger
}

// NewService creates a new recommendations service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		portfolio: cfg.Portfolio,
		scores:    cfg.Scores,
		converter: cfg.Converter,
		events:    cfg.Events,
		ttl:       cfg.TTL,
		log:       cfg.Log.With().Str("service", "recommendations").Logger(),
	}
}

// Recommend returns an allocation plan for contribution + dividends. A still
// valid pending recommendation for the same total is served as-is instead of
// recomputing.
func (s *Service) Recommend(userID, baseCurrency, contribution, dividends string) (*Recommendation, error) {
	contrib, divs, total, err := parseInvestable(contribution, dividends)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	cached, err := s.repo.GetLatestPending(userID)
	if err != nil {
		return nil, err
	}
	if cached != nil && !cached.Expired(now) &&
		cached.TotalInvestable == total.String() && cached.BaseCurrency == baseCurrency {
		return cached, nil
	}

	rec := &Recommendation{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          StatusPending,
		Contribution:    contrib.String(),
		Dividends:       divs.String(),
		TotalInvestable: total.String(),
		BaseCurrency:    baseCurrency,
		CorrelationID:   uuid.New().String(),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	rec.Items, err = s.buildItems(userID, baseCurrency, total, now, rec.CorrelationID)
	if err != nil {
		return nil, err
	}
	if rec.Items == nil {
		// A balanced portfolio yields an empty plan, not an error.
		rec.Items = []Item{}
	}

	if err := s.repo.Create(rec); err != nil {
		return nil, err
	}

	s.events.Emit(events.RecommendationCreated, "recommendations", rec.CorrelationID, map[string]interface{}{
		"recommendation_id": rec.ID,
		"total_investable":  rec.TotalInvestable,
		"items":             len(rec.Items),
	})

	return rec, nil
}

// buildItems computes the weighted allocation. A portfolio with no
// underweight class yields no items.
func (s *Service) buildItems(userID, baseCurrency string, total money.Amount, now time.Time, correlationID string) ([]Item, error) {
	valuation, err := s.portfolio.Valuation(userID, baseCurrency, now, correlationID)
	if err != nil {
		return nil, err
	}

	classes, err := s.portfolio.ListClasses(userID)
	if err != nil {
		return nil, err
	}
	classByID := make(map[string]portfolio.AssetClass, len(classes))
	for _, c := range classes {
		classByID[c.ID] = c
	}

	// Class gap: targetMin - currentAllocation. Positive only for
	// underweight classes; at-or-above-target classes report a zero or
	// negative gap on their items instead of receiving money.
	gaps := make(map[string]money.Amount)
	allocByClass := make(map[string]portfolio.ClassAllocation, len(valuation.Classes))
	anyUnderweight := false
	for _, allocation := range valuation.Classes {
		allocByClass[allocation.ClassID] = allocation
		gap := money.MustParse(allocation.TargetMin).Sub(money.MustParse(allocation.Percent))
		gaps[allocation.ClassID] = gap
		if allocation.Underweight && gap.IsPositive() {
			anyUnderweight = true
		}
	}
	if !anyUnderweight {
		return nil, nil
	}

	assets, err := s.portfolio.ListAssets(userID)
	if err != nil {
		return nil, err
	}
	scores, err := s.scores.ListScores(userID)
	if err != nil {
		return nil, err
	}
	scoreBySymbol := make(map[string]scoring.AssetScore, len(scores))
	for _, score := range scores {
		scoreBySymbol[score.Symbol] = score
	}

	type candidate struct {
		item   Item
		weight money.Amount
	}
	var candidates []candidate
	var overAllocated []Item

	for _, allocation := range valuation.Classes {
		classID := allocation.ClassID
		gap := gaps[classID]
		class := classByID[classID]
		classAssets := candidateAssets(assets, classID, scoreBySymbol, class.MaxAssets)

		for _, asset := range classAssets {
			score := scoreBySymbol[asset.Symbol]

			price, err := s.basePrice(&asset, baseCurrency, now, correlationID)
			if err != nil {
				return nil, err
			}

			item := Item{
				Symbol:            asset.Symbol,
				AssetClassID:      classID,
				ClassName:         class.Name,
				Score:             score.Score,
				MaxScore:          score.MaxPossibleScore,
				CurrentAllocation: allocation.Percent,
				TargetAllocation:  allocation.TargetMin,
				AllocationGap:     gap.String(),
				Price:             price,
			}

			if !allocation.Underweight || !gap.IsPositive() {
				if allocation.Overweight {
					item.IsOverAllocated = true
					item.Weight = "0"
					item.Amount = "0"
					overAllocated = append(overAllocated, item)
				}
				continue
			}

			// weight = gap x (1 + score/maxPossibleScore); unscored
			// assets fall back to the bare gap.
			factor := money.FromInt(1)
			if score.MaxPossibleScore > 0 {
				ratio, err := money.FromInt(score.Score).Div(money.FromInt(score.MaxPossibleScore))
				if err != nil {
					return nil, err
				}
				factor = factor.Add(ratio)
			}
			weight := gap.Mul(factor)
			item.Weight = weight.String()

			candidates = append(candidates, candidate{item: item, weight: weight})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	weightSum := money.Zero()
	for _, c := range candidates {
		weightSum = weightSum.Add(c.weight)
	}
	if weightSum.IsZero() {
		return nil, nil
	}

	var items []Item
	for _, c := range candidates {
		share, err := total.Mul(c.weight).Div(weightSum)
		if err != nil {
			return nil, err
		}
		amount := share.Round(2)

		class := classByID[c.item.AssetClassID]
		if class.MinAllocationValue != "" {
			min := money.MustParse(class.MinAllocationValue)
			if min.IsPositive() && amount.Cmp(min) < 0 {
				continue
			}
		}

		c.item.Amount = amount.String()
		items = append(items, c.item)
	}

	sort.Slice(items, func(i, j int) bool {
		return money.MustParse(items[i].Amount).Cmp(money.MustParse(items[j].Amount)) > 0
	})

	// Over-allocated classes are reported after the funded items.
	items = append(items, overAllocated...)

	return items, nil
}

// Confirm turns a pending recommendation into recorded investments. Lines
// are the purchases the user chose to execute, with the amounts actually
// spent and the prices actually obtained; an empty list executes the plan as
// recommended. The write commits before any cached pending recommendations
// are invalidated, so a failed confirm leaves the cache untouched.
func (s *Service) Confirm(userID, recommendationID string, lines []ConfirmLine) (*Recommendation, error) {
	rec, err := s.repo.GetByID(recommendationID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.UserID != userID {
		return nil, domain.NewNotFound("recommendation not found")
	}
	if rec.Status == StatusConfirmed {
		return nil, domain.NewConflict("recommendation has already been confirmed")
	}

	now := time.Now()
	if rec.Expired(now) {
		return nil, domain.NewConflict("recommendation has expired")
	}
	if len(rec.Items) == 0 {
		return nil, domain.NewValidation("recommendation has no items to confirm")
	}

	investments, err := buildInvestments(rec, lines, now)
	if err != nil {
		return nil, err
	}
	if len(investments) == 0 {
		return nil, domain.NewValidation("no executable lines to confirm")
	}

	if err := s.repo.Confirm(rec, investments, now); err != nil {
		return nil, err
	}

	// Cache invalidation strictly after the commit.
	if err := s.repo.DeletePendingExcept(userID, rec.ID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate pending recommendations")
	}

	s.events.Emit(events.InvestmentsConfirmed, "recommendations", rec.CorrelationID, map[string]interface{}{
		"recommendation_id": rec.ID,
		"investments":       len(investments),
	})

	rec.Status = StatusConfirmed
	rec.ConfirmedAt = &now
	return rec, nil
}

// ListInvestments returns the user's confirmed investments
func (s *Service) ListInvestments(userID string) ([]Investment, error) {
	return s.repo.ListInvestments(userID)
}

// DeleteExpired removes expired pending recommendations. Used by the cleanup
// job.
func (s *Service) DeleteExpired() (int64, error) {
	return s.repo.DeleteExpiredPending(time.Now())
}

// buildInvestments derives purchase quantities from the user's chosen lines,
// quantity = actualAmount / pricePerUnit. Lines with a non-positive amount
// are skipped rather than producing zero or negative quantities. With no
// explicit lines, the plan's own items are executed as recommended.
func buildInvestments(rec *Recommendation, lines []ConfirmLine, now time.Time) ([]Investment, error) {
	if len(lines) == 0 {
		for _, item := range rec.Items {
			lines = append(lines, ConfirmLine{
				Symbol:       item.Symbol,
				ActualAmount: item.Amount,
				PricePerUnit: item.Price,
			})
		}
	}

	planned := make(map[string]bool, len(rec.Items))
	for _, item := range rec.Items {
		planned[item.Symbol] = true
	}

	var investments []Investment
	for _, line := range lines {
		if !planned[line.Symbol] {
			return nil, domain.NewValidation("symbol %s is not part of this recommendation", line.Symbol)
		}

		amount, err := money.Parse(line.ActualAmount)
		if err != nil {
			return nil, domain.NewValidation("line %s has a non-decimal amount", line.Symbol)
		}
		if !amount.IsPositive() {
			// Lines the user zeroed out are skipped, not errors.
			continue
		}

		price, err := money.Parse(line.PricePerUnit)
		if err != nil || !price.IsPositive() {
			return nil, domain.NewValidation("line %s needs a positive price per unit", line.Symbol)
		}

		quantity, err := amount.Div(price)
		if err != nil {
			return nil, err
		}

		investments = append(investments, Investment{
			ID:               uuid.New().String(),
			UserID:           rec.UserID,
			RecommendationID: rec.ID,
			Symbol:           line.Symbol,
			Amount:           amount.String(),
			Price:            price.String(),
			Quantity:         quantity.String(),
			CreatedAt:        now,
		})
	}
	return investments, nil
}

// candidateAssets returns the class's non-ignored, priced holdings, best
// scored first, capped at maxAssets when set.
func candidateAssets(assets []portfolio.Asset, classID string, scores map[string]scoring.AssetScore, maxAssets int) []portfolio.Asset {
	var out []portfolio.Asset
	for _, a := range assets {
		if a.IsIgnored || a.AssetClassID == nil || *a.AssetClassID != classID || a.LastPrice == nil {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i].Symbol].Score > scores[out[j].Symbol].Score
	})

	if maxAssets > 0 && len(out) > maxAssets {
		out = out[:maxAssets]
	}
	return out
}

func (s *Service) basePrice(asset *portfolio.Asset, baseCurrency string, now time.Time, correlationID string) (string, error) {
	price, err := money.Parse(*asset.LastPrice)
	if err != nil {
		return "", domain.NewValidation("holding %s has a non-decimal price", asset.Symbol)
	}

	priceCurrency := asset.PriceCurrency
	if priceCurrency == "" {
		priceCurrency = asset.Currency
	}
	if priceCurrency == baseCurrency {
		return price.String(), nil
	}

	conversion, err := s.converter.Convert(price, priceCurrency, baseCurrency, now, correlationID)
	if err != nil {
		return "", err
	}
	return conversion.Converted, nil
}

func parseInvestable(contribution, dividends string) (c, d, total money.Amount, err error) {
	if contribution == "" {
		contribution = "0"
	}
	if dividends == "" {
		dividends = "0"
	}

	c, err = money.Parse(contribution)
	if err != nil {
		return c, d, total, domain.NewValidation("contribution must be a decimal string")
	}
	d, err = money.Parse(dividends)
	if err != nil {
		return c, d, total, domain.NewValidation("dividends must be a decimal string")
	}
	if c.IsNegative() || d.IsNegative() {
		return c, d, total, domain.NewValidation("investable amounts must not be negative")
	}

	total = c.Add(d)
	if total.IsZero() {
		return c, d, total, domain.NewValidation("total investable amount must be positive")
	}
	return c, d, total, nil
}
