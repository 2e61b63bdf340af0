package quotes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subscriptionStub confirms or rejects targets and counts requests per
// dispname token.
type subscriptionStub struct {
	mu     sync.Mutex
	counts map[string]int
	reject func(target string) bool
}

func newSubscriptionStub(reject func(string) bool) *subscriptionStub {
	return &subscriptionStub{counts: make(map[string]int), reject: reject}
}

func (s *subscriptionStub) handler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("dispname")

	s.mu.Lock()
	s.counts[target]++
	s.mu.Unlock()

	if s.reject != nil && s.reject(target) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "Subscription requested for dispname : %s", target)
}

func (s *subscriptionStub) count(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[target]
}

func (s *subscriptionStub) totalFor(match func(string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for target, n := range s.counts {
		if match(target) {
			total += n
		}
	}
	return total
}

func newTestManager(serverURL string, symbols []string) *SubscriptionManager {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSubscriptionManager(serverURL+"/subscribe?dispname={symbol}", symbols, 5, 0, 5*time.Second, logger)
}

func TestSubscribeEquityConfirmedFirstAttempt(t *testing.T) {
	stub := newSubscriptionStub(nil)
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	m := newTestManager(server.URL, nil)
	failed := m.SubscribeEquity(context.Background(), []string{"TCS"})

	assert.Empty(t, failed)
	assert.Equal(t, 1, stub.count("TCSEQ"))
}

func TestSubscribeEquityExhaustsAttemptCap(t *testing.T) {
	stub := newSubscriptionStub(func(string) bool { return true })
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	m := newTestManager(server.URL, nil)
	failed := m.SubscribeEquity(context.Background(), []string{"TCS", "INFY"})

	assert.Equal(t, []string{"TCS", "INFY"}, failed)
	assert.Equal(t, 5, stub.count("TCSEQ"))
	assert.Equal(t, 5, stub.count("INFYEQ"))
}

func TestSubscribeEquityRateLimitedCapsAttempts(t *testing.T) {
	// A finite request rate throttles the pass but never changes the
	// attempt count: the stub still sees exactly the cap per symbol.
	stub := newSubscriptionStub(func(string) bool { return true })
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := NewSubscriptionManager(server.URL+"/subscribe?dispname={symbol}", nil, 5, 500, 5*time.Second, logger)

	failed := m.SubscribeEquity(context.Background(), []string{"TCS"})

	assert.Equal(t, []string{"TCS"}, failed)
	assert.Equal(t, 5, stub.count("TCSEQ"))
}

func TestSubscribeEquityRetriesOnWrongBody(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		if n < 3 {
			fmt.Fprint(w, "queued")
			return
		}
		fmt.Fprint(w, "Subscription requested for dispname : TCSEQ")
	}))
	defer server.Close()

	m := newTestManager(server.URL, nil)
	failed := m.SubscribeEquity(context.Background(), []string{"TCS"})

	assert.Empty(t, failed)
	assert.Equal(t, 3, attempts)
}

func TestSubscribeFuturesCoversThreeExpiries(t *testing.T) {
	stub := newSubscriptionStub(nil)
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	now := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	m := newTestManager(server.URL, nil)
	m.SubscribeFutures(context.Background(), []string{"TCS"}, now)

	assert.Equal(t, 1, stub.count("TCS24NOVFUT"))
	assert.Equal(t, 1, stub.count("TCS24DECFUT"))
	assert.Equal(t, 1, stub.count("TCS25JANFUT"))
}

func TestSubscribeFuturesSharesCapAcrossExpiries(t *testing.T) {
	// XXX is never confirmed: it must burn its whole cap on the first
	// expiry and be skipped for the later two. YYY keeps subscribing.
	stub := newSubscriptionStub(func(target string) bool {
		return target == "XXX24NOVFUT" || target == "XXX24DECFUT" || target == "XXX25JANFUT"
	})
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	now := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	m := newTestManager(server.URL, nil)
	m.SubscribeFutures(context.Background(), []string{"XXX", "YYY"}, now)

	xxxTotal := stub.totalFor(func(target string) bool { return target[:3] == "XXX" })
	assert.Equal(t, 5, xxxTotal)
	assert.Equal(t, 5, stub.count("XXX24NOVFUT"))
	assert.Equal(t, 0, stub.count("XXX24DECFUT"))

	assert.Equal(t, 1, stub.count("YYY24NOVFUT"))
	assert.Equal(t, 1, stub.count("YYY24DECFUT"))
	assert.Equal(t, 1, stub.count("YYY25JANFUT"))
}

func TestSubscribeFuturesLogsFailurePerExpiry(t *testing.T) {
	// An exhausted symbol makes no requests for later expiries, yet each
	// expiry still records its own failure entry.
	stub := newSubscriptionStub(func(string) bool { return true })
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	logger, hook := logrustest.NewNullLogger()
	m := NewSubscriptionManager(server.URL+"/subscribe?dispname={symbol}", nil, 5, 0, 5*time.Second, logger)

	now := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	m.SubscribeFutures(context.Background(), []string{"XXX"}, now)

	failures := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Futures subscription failed" {
			failures++
		}
	}
	assert.Equal(t, 3, failures)

	assert.Equal(t, 5, stub.count("XXX24NOVFUT"))
	assert.Equal(t, 0, stub.count("XXX24DECFUT"))
	assert.Equal(t, 0, stub.count("XXX25JANFUT"))
}

func TestSubscribeAllSkipsFuturesForFailedEquity(t *testing.T) {
	// BAD never confirms its equity subscription, so no futures request
	// for it may ever go out.
	stub := newSubscriptionStub(func(target string) bool { return target == "BADEQ" })
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer server.Close()

	now := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	m := newTestManager(server.URL, []string{"BAD", "GOOD"})
	failed := m.SubscribeAll(context.Background(), now)

	require.Equal(t, []string{"BAD"}, failed)
	assert.Equal(t, 5, stub.count("BADEQ"))

	badFutures := stub.totalFor(func(target string) bool {
		return len(target) > 3 && target[:3] == "BAD" && target != "BADEQ"
	})
	assert.Equal(t, 0, badFutures)

	assert.Equal(t, 1, stub.count("GOODEQ"))
	assert.Equal(t, 1, stub.count("GOOD24NOVFUT"))
}
