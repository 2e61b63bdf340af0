package quotes

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/arbdesk/arbdesk/pkg/expiry"
)

const futuresExpiryCount = 3

type symbolState int

const (
	stateAttempting symbolState = iota
	stateConfirmed
	stateExhausted
)

// retryState is one symbol's subscription attempt counter. The counter is
// symbol-scoped: in the futures pass it carries across all three expiry
// codes, so a symbol that burned its attempts on the first expiry is not
// retried for later ones.
type retryState struct {
	state    symbolState
	attempts int
}

// SubscriptionManager requests upstream feed subscriptions for the symbol
// universe, one symbol at a time, with a bounded attempt cap per symbol.
// It runs once at startup; failures are reported, never fatal.
type SubscriptionManager struct {
	url         string
	symbols     []string
	maxAttempts int
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *logrus.Logger
}

// NewSubscriptionManager builds a manager for the given subscription URL
// template ({symbol} placeholder). requestRate <= 0 disables throttling.
func NewSubscriptionManager(url string, symbols []string, maxAttempts int, requestRate float64, timeout time.Duration, logger *logrus.Logger) *SubscriptionManager {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	limit := rate.Inf
	if requestRate > 0 {
		limit = rate.Limit(requestRate)
	}

	return &SubscriptionManager{
		url:         url,
		symbols:     symbols,
		maxAttempts: maxAttempts,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
	}
}

// SubscribeAll runs the startup subscription pass: equities first, then
// futures for the symbols whose equity subscription succeeded. It returns
// the symbols that failed equity subscription.
func (m *SubscriptionManager) SubscribeAll(ctx context.Context, now time.Time) []string {
	failed := m.SubscribeEquity(ctx, m.symbols)

	valid := make([]string, 0, len(m.symbols))
	for _, symbol := range m.symbols {
		if !contains(failed, symbol) {
			valid = append(valid, symbol)
		}
	}
	m.SubscribeFutures(ctx, valid, now)
	return failed
}

// SubscribeEquity subscribes each symbol's cash instrument ({symbol}EQ)
// and returns the symbols whose attempt cap was exhausted.
func (m *SubscriptionManager) SubscribeEquity(ctx context.Context, symbols []string) []string {
	states := newStates(symbols)

	var failed []string
	for _, symbol := range symbols {
		st := states[symbol]
		m.attempt(ctx, st, symbol+"EQ")
		if st.state == stateExhausted {
			m.logger.WithFields(logrus.Fields{
				"symbol":   symbol,
				"attempts": st.attempts,
			}).Error("Equity subscription failed")
			failed = append(failed, symbol)
		}
	}
	return failed
}

// SubscribeFutures subscribes each symbol's futures contracts for the
// current month and the two after it ({symbol}{code}FUT). The attempt
// counter is shared across the three expiry passes.
func (m *SubscriptionManager) SubscribeFutures(ctx context.Context, symbols []string, now time.Time) {
	states := newStates(symbols)

	for _, code := range expiry.MonthCodes(now, futuresExpiryCount) {
		for _, symbol := range symbols {
			// A symbol that burned its cap on an earlier expiry makes no
			// further requests, but each expiry still gets a failure line.
			st := states[symbol]
			st.state = stateAttempting

			m.attempt(ctx, st, symbol+code+"FUT")
			if st.state == stateExhausted {
				m.logger.WithFields(logrus.Fields{
					"symbol":   symbol,
					"expiry":   code,
					"attempts": st.attempts,
				}).Error("Futures subscription failed")
			}
		}
	}
}

// attempt drives one symbol's state machine for a single target:
// attempting until confirmed or the shared counter hits the cap.
func (m *SubscriptionManager) attempt(ctx context.Context, st *retryState, target string) {
	expected := "Subscription requested for dispname : " + target

	for st.state == stateAttempting {
		if st.attempts >= m.maxAttempts {
			st.state = stateExhausted
			return
		}

		m.logger.WithField("target", target).Info("Requesting subscription")
		confirmed, err := m.request(ctx, target, expected)
		if err != nil {
			st.attempts++
			m.logger.WithError(err).WithField("target", target).Error("Subscription request failed")
			continue
		}
		if confirmed {
			st.state = stateConfirmed
			m.logger.WithField("target", target).Info("Subscription confirmed")
			return
		}

		st.attempts++
		m.logger.WithFields(logrus.Fields{
			"target":  target,
			"attempt": st.attempts,
		}).Warn("Subscription not confirmed, retrying")
	}
}

func (m *SubscriptionManager) request(ctx context.Context, target, expected string) (bool, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return false, err
	}

	url := strings.ReplaceAll(m.url, "{symbol}", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK && string(body) == expected, nil
}

func newStates(symbols []string) map[string]*retryState {
	states := make(map[string]*retryState, len(symbols))
	for _, symbol := range symbols {
		states[symbol] = &retryState{}
	}
	return states
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
