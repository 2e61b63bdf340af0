package arb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arbdesk/arbdesk/pkg/models"
	"github.com/arbdesk/arbdesk/pkg/quotes"
	"github.com/arbdesk/arbdesk/pkg/refdata"
)

const (
	defaultWorkers     = 10
	defaultTaskTimeout = 15 * time.Second
)

type Config struct {
	Workers     int
	TaskTimeout time.Duration
}

// Orchestrator fans one fetch-and-derive task per universe symbol across a
// bounded worker pool. Tasks share nothing mutable; the lot size table and
// expiry inputs are read-only.
type Orchestrator struct {
	client      quotes.Client
	lotSizes    refdata.LotSizeTable
	symbols     []string
	workers     int
	taskTimeout time.Duration
	logger      *logrus.Logger
}

func NewOrchestrator(client quotes.Client, lotSizes refdata.LotSizeTable, symbols []string, cfg Config, logger *logrus.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}

	return &Orchestrator{
		client:      client,
		lotSizes:    lotSizes,
		symbols:     symbols,
		workers:     cfg.Workers,
		taskTimeout: cfg.TaskTimeout,
		logger:      logger,
	}
}

// FetchAll derives the metric record for every universe symbol at the
// given expiry and returns the batch sorted by symbol. A symbol whose
// fetch or derivation fails is logged and dropped; it never aborts the
// batch. The batch is returned whole once every task has settled.
func (o *Orchestrator) FetchAll(ctx context.Context, expiryCode string, daysLeft int, openFactor float64) []models.DerivedMetrics {
	results := make([]models.DerivedMetrics, 0, len(o.symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.workers)

	for _, symbol := range o.symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			record, err := o.fetchSymbol(ctx, symbol, expiryCode, daysLeft, openFactor)
			if err != nil {
				o.logger.WithError(err).WithFields(logrus.Fields{
					"symbol": symbol,
					"expiry": expiryCode,
				}).Error("Dropping symbol from batch")
				return
			}

			mu.Lock()
			results = append(results, record)
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })
	return results
}

func (o *Orchestrator) fetchSymbol(ctx context.Context, symbol, expiryCode string, daysLeft int, openFactor float64) (models.DerivedMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, o.taskTimeout)
	defer cancel()

	equity, err := o.client.EquityQuote(ctx, symbol)
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	futures, err := o.client.FuturesQuote(ctx, symbol, expiryCode)
	if err != nil {
		return models.DerivedMetrics{}, err
	}

	return Derive(DeriveInput{
		Symbol:     symbol,
		LotSize:    o.lotSizes.Lookup(symbol),
		Equity:     equity,
		Futures:    futures,
		DaysLeft:   daysLeft,
		OpenFactor: openFactor,
	})
}
