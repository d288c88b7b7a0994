package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
)

// LotDetail is one buy lot with whatever is still open of it and every sale matched against it.
type LotDetail struct {
	ID     string            `json:"id"`
	Open   *model.OpenLot    `json:"open,omitempty"`
	Closed []model.ClosedLot `json:"closed"`
}

// DuplicateCheck is the result of a fingerprint lookup.
type DuplicateCheck struct {
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Matches     int               `json:"matches"`
}

// PriceTarget is an instrument whose market price is worth tracking.
type PriceTarget struct {
	Key      string `json:"key"`
	Code     string `json:"code"`
	Exchange string `json:"exchange"`
}

// PositionService handles read operations over derived positions.
type PositionService struct {
	repo        *repository.InstrumentRepository
	cache       *PositionCache
	concurrency int
	log         zerolog.Logger
}

// NewPositionService creates a new PositionService.
// concurrency bounds how many instruments bulk reads derive at once.
func NewPositionService(
	repo *repository.InstrumentRepository,
	cache *PositionCache,
	concurrency int,
	log zerolog.Logger,
) *PositionService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PositionService{
		repo:        repo,
		cache:       cache,
		concurrency: concurrency,
		log:         log.With().Str("service", "position_service").Logger(),
	}
}

// ListInstruments returns every instrument with a ledger file, without deriving positions.
func (s *PositionService) ListInstruments() ([]model.Instrument, error) {
	instruments, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveInstruments, err)
	}
	return instruments, nil
}

// GetPosition returns the current position of one instrument.
func (s *PositionService) GetPosition(key string) (model.Position, error) {
	return s.cache.Get(key)
}

// GetLot returns the lot with the given identifier, whether it is still open or fully closed.
//
// Returns apperrors.ErrLotNotFound if no open or closed lot refers to lotID.
func (s *PositionService) GetLot(key, lotID string) (LotDetail, error) {
	pos, err := s.cache.Get(key)
	if err != nil {
		return LotDetail{}, err
	}

	detail := LotDetail{ID: lotID, Closed: []model.ClosedLot{}}
	if lot, ok := pos.FindOpenLot(lotID); ok {
		detail.Open = &lot
	}
	for _, c := range pos.ClosedLots {
		if c.BuyLotID == lotID {
			detail.Closed = append(detail.Closed, c)
		}
	}
	if detail.Open == nil && len(detail.Closed) == 0 {
		return LotDetail{}, fmt.Errorf("%w: %s", apperrors.ErrLotNotFound, lotID)
	}
	return detail, nil
}

// ListPositions returns a summary of every instrument, derived concurrently.
// Instruments are returned in key order. An instrument that cannot be read, for example because
// its files vanished after listing, is logged and left out.
func (s *PositionService) ListPositions(ctx context.Context) ([]model.PositionSummary, error) {
	instruments, err := s.ListInstruments()
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, instruments)
}

func (s *PositionService) summarize(ctx context.Context, instruments []model.Instrument) ([]model.PositionSummary, error) {
	summaries := make([]*model.PositionSummary, len(instruments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, inst := range instruments {
		i, inst := i, inst
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pos, err := s.cache.Get(inst.Key)
			if err != nil {
				s.log.Warn().Err(err).Str("instrument", inst.Key).Msg("skipping instrument")
				return nil
			}
			summary := Summarize(pos)
			summaries[i] = &summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrievePosition, err)
	}

	out := make([]model.PositionSummary, 0, len(summaries))
	for _, summary := range summaries {
		if summary != nil {
			out = append(out, *summary)
		}
	}
	return out, nil
}

// Summarize condenses a position for listings. Money values are rounded to two decimals.
func Summarize(pos model.Position) model.PositionSummary {
	return model.PositionSummary{
		Key:          pos.Instrument.Key,
		Name:         pos.Instrument.Name,
		Exchange:     pos.Instrument.Exchange,
		Class:        string(pos.Instrument.Class),
		OpenQuantity: pos.OpenQuantity(),
		AverageCost:  round(pos.AverageCost()),
		InvestedCost: round(pos.InvestedCost()),
		RealisedGain: round(pos.RealisedGain()),
		OpenLots:     len(pos.OpenLots),
		ClosedLots:   len(pos.ClosedLots),
		AsOf:         pos.AsOf,
	}
}

// FindDuplicates counts the events of key sharing the fingerprint of the given event.
// An instrument without a ledger has no duplicates. Whether a match is a duplicate or a
// legitimate repeat trade is for the caller to decide.
func (s *PositionService) FindDuplicates(key string, date time.Time, action model.Action, quantity, price float64) (DuplicateCheck, error) {
	if !isFinite(quantity) || !isFinite(price) {
		return DuplicateCheck{}, fmt.Errorf("%w: quantity and price must be finite", apperrors.ErrInvalidEvent)
	}
	check := DuplicateCheck{Fingerprint: model.NewFingerprint(date, action, quantity, price)}

	pos, err := s.cache.Get(key)
	if errors.Is(err, apperrors.ErrInstrumentNotFound) {
		return check, nil
	}
	if err != nil {
		return check, err
	}
	for _, fp := range pos.Fingerprints {
		if fp == check.Fingerprint {
			check.Matches++
		}
	}
	return check, nil
}

// OpenSymbols returns the equities that currently hold open units, in key order.
// Funds are left out; their prices are not quoted on an exchange.
func (s *PositionService) OpenSymbols(ctx context.Context) ([]PriceTarget, error) {
	instruments, err := s.ListInstruments()
	if err != nil {
		return nil, err
	}

	var targets []PriceTarget
	for _, inst := range instruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos, err := s.cache.Get(inst.Key)
		if err != nil {
			s.log.Warn().Err(err).Str("instrument", inst.Key).Msg("skipping instrument")
			continue
		}
		if pos.Instrument.Class != model.ClassEquity || pos.OpenQuantity() <= model.QuantityEpsilon {
			continue
		}
		targets = append(targets, PriceTarget{
			Key:      pos.Instrument.Key,
			Code:     pos.Instrument.Code,
			Exchange: pos.Instrument.Exchange,
		})
	}
	return targets, nil
}
