package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/yahoo"
)

// Quote is the latest known market price of one instrument.
type Quote struct {
	Key       string    `json:"key"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency,omitempty"`
	High52W   float64   `json:"high52w,omitempty"`
	Low52W    float64   `json:"low52w,omitempty"`
	Date      time.Time `json:"date"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// yahooSuffixes maps ledger exchange names to Yahoo Finance ticker suffixes.
var yahooSuffixes = map[string]string{
	"NSE": ".NS",
	"BSE": ".BO",
}

// YahooSymbol returns the Yahoo Finance ticker of an equity, e.g. code "NSE:INFY" or code "INFY"
// on exchange "NSE" both give "INFY.NS". Exchanges without a known suffix report false.
func YahooSymbol(code, exchange string) (string, bool) {
	if exch, symbol, found := strings.Cut(code, ":"); found {
		exchange, code = exch, symbol
	}
	suffix, ok := yahooSuffixes[strings.ToUpper(strings.TrimSpace(exchange))]
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ok || code == "" {
		return "", false
	}
	return code + suffix, true
}

// PriceService keeps the latest quotes of instruments with open equity positions.
// Quotes live in memory only and are fetched outside position derivation.
type PriceService struct {
	client    yahoo.Client
	positions *PositionService
	log       zerolog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewPriceService creates a new PriceService fetching through client.
func NewPriceService(client yahoo.Client, positions *PositionService, log zerolog.Logger) *PriceService {
	return &PriceService{
		client:    client,
		positions: positions,
		log:       log.With().Str("service", "price_service").Logger(),
		now:       time.Now,
		quotes:    make(map[string]Quote),
	}
}

// Refresh fetches the latest close of every open equity position.
// Failures are logged per symbol and leave the previous quote in place.
//
// Returns the number of quotes updated, or an error if the open positions cannot be listed
// or ctx is cancelled.
func (s *PriceService) Refresh(ctx context.Context) (int, error) {
	targets, err := s.positions.OpenSymbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrievePrices, err)
	}

	updated := 0
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		symbol, ok := YahooSymbol(t.Code, t.Exchange)
		if !ok {
			s.log.Debug().Str("instrument", t.Key).Str("exchange", t.Exchange).Msg("no quote source for exchange")
			continue
		}

		quote, err := s.fetch(ctx, t.Key, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("instrument", t.Key).Str("symbol", symbol).Msg("failed to refresh price")
			continue
		}

		s.mu.Lock()
		s.quotes[t.Key] = quote
		s.mu.Unlock()
		updated++
	}

	s.log.Info().Int("updated", updated).Int("targets", len(targets)).Msg("price refresh finished")
	return updated, nil
}

func (s *PriceService) fetch(ctx context.Context, key, symbol string) (Quote, error) {
	resp, err := s.client.QueryYahooFiveDaySymbol(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	chart, err := s.client.ParseChart(resp)
	if err != nil {
		return Quote{}, err
	}
	latest, ok := chart.Latest()
	if !ok {
		return Quote{}, fmt.Errorf("no closing price for %s", symbol)
	}
	return Quote{
		Key:       key,
		Symbol:    symbol,
		Price:     latest.PriceClose,
		Currency:  chart.Currency,
		High52W:   chart.High52W,
		Low52W:    chart.Low52W,
		Date:      latest.Date,
		FetchedAt: s.now(),
	}, nil
}

// Quotes returns every known quote in key order.
func (s *PriceService) Quotes() []Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Key < quotes[j].Key })
	return quotes
}

// Quote returns the latest quote of one instrument.
//
// Returns apperrors.ErrPriceNotFound if no refresh has fetched it yet.
func (s *PriceService) Quote(key string) (Quote, error) {
	key, err := repository.NormalizeKey(key)
	if err != nil {
		return Quote{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[key]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrPriceNotFound, key)
	}
	return q, nil
}
