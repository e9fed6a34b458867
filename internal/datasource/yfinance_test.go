package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/seenimoa/stockdash/pkg/models"
)

const chartAAPL = `{"chart":{"result":[{
  "meta":{"currency":"USD","symbol":"AAPL","exchangeName":"NMS","instrumentType":"EQUITY",
          "regularMarketPrice":190.5,"fiftyTwoWeekHigh":199.6,"longName":"Apple Inc. (chart)",
          "exchangeTimezoneName":"America/New_York","gmtoffset":-14400},
  "timestamp":[1760016600,1760103000,1760362200],
  "indicators":{"quote":[{
    "open":[180.1,181.2,182.3],
    "high":[182.0,183.0,184.0],
    "low":[179.0,180.0,181.0],
    "close":[181.5,null,183.5],
    "volume":[50000000,42000000,1.5E7]
  }]}
}],"error":null}}`

const summaryAAPL = `{"quoteSummary":{"result":[{
  "price":{"longName":"Apple Inc.","currency":"USD","marketCap":{"raw":2950000000000,"fmt":"2.95T"},
           "regularMarketPrice":{"raw":190.5,"fmt":"190.50"}},
  "summaryDetail":{"dividendYield":{"raw":0.0051,"fmt":"0.51%"},"trailingPE":{},
                   "marketCap":{"raw":1,"fmt":"1"},"averageVolume":{"raw":55000000,"fmt":"55M"}},
  "assetProfile":{"sector":"Technology","industry":"Consumer Electronics",
                  "companyOfficers":[{"name":"Tim Cook"}]},
  "defaultKeyStatistics":{"beta":{"raw":1.25,"fmt":"1.25"}},
  "financialData":{"currentPrice":{"raw":190.5,"fmt":"190.50"}}
}],"error":null}}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahoo(YahooOptions{
		ChartURL:   srv.URL + "/v8/finance/chart",
		SummaryURL: srv.URL + "/v10/finance/quoteSummary",
		Client:     srv.Client(),
	})
}

func TestYahooFetch(t *testing.T) {
	var calls atomic.Int32
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/AAPL"):
			if got := r.URL.Query().Get("range"); got != "6mo" {
				t.Errorf("range = %q, want 6mo", got)
			}
			if got := r.URL.Query().Get("interval"); got != "1d" {
				t.Errorf("interval = %q, want 1d", got)
			}
			fmt.Fprint(w, chartAAPL)
		case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/AAPL"):
			if !strings.Contains(r.URL.Query().Get("modules"), "summaryDetail") {
				t.Errorf("modules = %q", r.URL.Query().Get("modules"))
			}
			fmt.Fprint(w, summaryAAPL)
		default:
			http.NotFound(w, r)
		}
	})

	raw, err := y.Fetch(context.Background(), "AAPL", models.Range6Months)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls.Load())
	}
	if raw.Symbol != "AAPL" || raw.Timezone != "America/New_York" || raw.GMTOffset != -14400 {
		t.Errorf("header = %q %q %d", raw.Symbol, raw.Timezone, raw.GMTOffset)
	}
	if len(raw.Bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(raw.Bars))
	}
	if raw.Bars[1].Close != nil {
		t.Errorf("null close should stay nil, got %v", *raw.Bars[1].Close)
	}
	if v := raw.Bars[2].Volume; v == nil || *v != 1.5e7 {
		t.Errorf("exponent volume not decoded: %v", v)
	}

	md := raw.Metadata
	if md["longName"] != "Apple Inc." {
		t.Errorf("quoteSummary longName should win over chart meta, got %v", md["longName"])
	}
	if md["marketCap"] != json.Number("2950000000000") {
		t.Errorf("price module marketCap should win, got %v", md["marketCap"])
	}
	if _, ok := md["trailingPE"]; ok {
		t.Error("empty {} value should be treated as missing")
	}
	if _, ok := md["companyOfficers"]; ok {
		t.Error("nested arrays should be skipped")
	}
	if md["sector"] != "Technology" {
		t.Errorf("sector = %v", md["sector"])
	}
	if md["fiftyTwoWeekHigh"] != json.Number("199.6") {
		t.Errorf("chart meta should fill missing keys, got %v", md["fiftyTwoWeekHigh"])
	}
}

func TestYahooFetchSummaryFailureIsNonFatal(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v8/") {
			fmt.Fprint(w, chartAAPL)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"finance":{"result":null,"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`)
	})

	raw, err := y.Fetch(context.Background(), "AAPL", models.Range1Year)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if raw.Metadata["longName"] != "Apple Inc. (chart)" {
		t.Errorf("expected chart meta fallback, got %v", raw.Metadata["longName"])
	}
}

func TestYahooFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    FetchKind
		target  error
	}{
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			},
			kind:   NotFound,
			target: ErrTickerNotFound,
		},
		{
			name: "provider not found in 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			},
			kind:   NotFound,
			target: ErrTickerNotFound,
		},
		{
			name: "http 429",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, "Too Many Requests")
			},
			kind:   RateLimited,
			target: ErrRateLimited,
		},
		{
			name: "throttle text on 403",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, "Rate limit exceeded")
			},
			kind:   RateLimited,
			target: ErrRateLimited,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			kind:   NetworkError,
			target: ErrNetwork,
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>maintenance</html>")
			},
			kind:   NetworkError,
			target: ErrNetwork,
		},
		{
			name: "no bars in range",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"HALT","currency":"USD"},"indicators":{"quote":[{}]}}],"error":null}}`)
			},
			kind:   EmptyResult,
			target: ErrEmptyResult,
		},
		{
			name: "summary rate limited is fatal",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(r.URL.Path, "/v8/") {
					fmt.Fprint(w, chartAAPL)
					return
				}
				w.WriteHeader(http.StatusTooManyRequests)
			},
			kind:   RateLimited,
			target: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYahoo(t, tt.handler)
			_, err := y.Fetch(context.Background(), "HALT", models.Range1Month)
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fe.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s (%v)", fe.Kind, tt.kind, err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.target)
			}
			if fe.Ticker != "HALT" {
				t.Errorf("Ticker = %q", fe.Ticker)
			}
		})
	}
}

func TestYahooFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	y := NewYahoo(YahooOptions{ChartURL: base, SummaryURL: base})
	_, err := y.Fetch(context.Background(), "AAPL", models.Range1Year)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !strings.Contains(err.Error(), "network error") {
		t.Errorf("message should surface the cause: %q", err.Error())
	}
}

func TestYahooFetchRejectsUnsupportedRange(t *testing.T) {
	var hits atomic.Int32
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, chartAAPL)
	})

	_, err := y.Fetch(context.Background(), "AAPL", "10y")
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("provider called %d times for an unsupported range", n)
	}
}

func TestYahooFetchConcurrent(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v8/") {
			fmt.Fprint(w, chartAAPL)
			return
		}
		fmt.Fprint(w, summaryAAPL)
	})

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			raw, err := y.Fetch(context.Background(), "AAPL", models.Range1Year)
			if err == nil && len(raw.Bars) != 3 {
				err = fmt.Errorf("bars = %d", len(raw.Bars))
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}

func TestFlattenSummary(t *testing.T) {
	in := map[string]any{
		"summaryDetail": map[string]any{"dividendYield": map[string]any{"raw": json.Number("0"), "fmt": "0.00%"}},
		"price":         map[string]any{"shortName": "Foo", "marketCap": map[string]any{}},
	}
	out := flattenSummary(in)
	if out["dividendYield"] != json.Number("0") {
		t.Errorf("explicit zero should survive: %v", out["dividendYield"])
	}
	if _, ok := out["marketCap"]; ok {
		t.Error("empty object should be dropped")
	}
	if out["shortName"] != "Foo" {
		t.Errorf("shortName = %v", out["shortName"])
	}
}
