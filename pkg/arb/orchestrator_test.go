package arb

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbdesk/arbdesk/pkg/models"
	"github.com/arbdesk/arbdesk/pkg/refdata"
)

// fakeClient serves canned quotes, with optional per-symbol failures and
// delays to shuffle task completion order.
type fakeClient struct {
	futuresErr map[string]error
	delay      map[string]time.Duration
}

func (f *fakeClient) EquityQuote(ctx context.Context, symbol string) (models.RawQuote, error) {
	if d, ok := f.delay[symbol]; ok {
		time.Sleep(d)
	}
	return models.RawQuote{"bidp1": 99.0, "askp1": 101.0, "ltp": 100.0}, nil
}

func (f *fakeClient) FuturesQuote(ctx context.Context, symbol, expiryCode string) (models.RawQuote, error) {
	if err, ok := f.futuresErr[symbol]; ok {
		return nil, err
	}
	return models.RawQuote{"bidp1": 103.0, "askp1": 104.0}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestFetchAllSortedRegardlessOfCompletion(t *testing.T) {
	client := &fakeClient{
		delay: map[string]time.Duration{
			"AAA": 30 * time.Millisecond,
			"BBB": 10 * time.Millisecond,
		},
	}
	table := refdata.LotSizeTable{"AAA": 5, "BBB": 25, "CCC": 10}
	o := NewOrchestrator(client, table, []string{"CCC", "AAA", "BBB"}, Config{}, quietLogger())

	records := o.FetchAll(context.Background(), "24FEB", 7, 1.0)
	require.Len(t, records, 3)
	assert.Equal(t, "AAA", records[0].Symbol)
	assert.Equal(t, "BBB", records[1].Symbol)
	assert.Equal(t, "CCC", records[2].Symbol)

	assert.Equal(t, 5, records[0].LotSize)
	assert.Equal(t, 25, records[1].LotSize)
	assert.Equal(t, 10, records[2].LotSize)
}

func TestFetchAllDropsFailedSymbol(t *testing.T) {
	client := &fakeClient{
		futuresErr: map[string]error{
			"AAA": &models.FetchError{Symbol: "AAA", Expiry: "24FEB", Status: 503},
		},
	}
	table := refdata.LotSizeTable{"AAA": 5, "BBB": 25}
	o := NewOrchestrator(client, table, []string{"AAA", "BBB"}, Config{}, quietLogger())

	records := o.FetchAll(context.Background(), "24FEB", 7, 1.0)
	require.Len(t, records, 1)
	assert.Equal(t, "BBB", records[0].Symbol)
}

func TestFetchAllDefaultsLotSize(t *testing.T) {
	client := &fakeClient{}
	o := NewOrchestrator(client, refdata.LotSizeTable{}, []string{"ZZZ"}, Config{}, quietLogger())

	records := o.FetchAll(context.Background(), "24FEB", 7, 1.0)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].LotSize)
}

func TestFetchAllEmptyUniverse(t *testing.T) {
	o := NewOrchestrator(&fakeClient{}, refdata.LotSizeTable{}, nil, Config{}, quietLogger())

	records := o.FetchAll(context.Background(), "24FEB", 7, 1.0)
	assert.Empty(t, records)
}
