package matcher

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func kListing(id, title string, close time.Time) domain.MarketListing {
	return domain.MarketListing{
		Venue: domain.VenueKalshi, ID: id, Title: title,
		YesPrice: 0.5, NoPrice: 0.5, CloseTime: close,
	}
}

func pListing(id, title string, close time.Time) domain.MarketListing {
	return domain.MarketListing{
		Venue: domain.VenuePolymarket, ID: id, Title: title,
		YesPrice: 0.5, NoPrice: 0.5, CloseTime: close,
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Will BTC close above $100k?", "will btc close above 100k"},
		{"Fed cuts rates in March!", "fed cuts rates in march"},
		{"  Spaced   out  ", "spaced out"},
		{"Trump-Harris debate", "trump harris debate"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestKeywords_DropsStopwordsAndShortTokens(t *testing.T) {
	got := Keywords("will the fed cut rates by march")
	want := []string{"fed", "cut", "rates", "march"}
	if len(got) != len(want) {
		t.Fatalf("Keywords=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keywords=%v want %v", got, want)
		}
	}
}

func TestMatch_PairsEquivalentTitles(t *testing.T) {
	close := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := New(0.60, testLogger())
	pairs := m.Match(
		[]domain.MarketListing{
			kListing("K1", "Will the Fed cut rates in March 2026?", close),
			kListing("K2", "Will Bitcoin close above $100,000 on March 31?", close),
		},
		[]domain.MarketListing{
			pListing("P1", "Bitcoin to close above $100,000 on March 31?", close),
			pListing("P2", "Fed cuts rates in March 2026", close.Add(2*time.Hour)),
		},
		nil,
	)
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs want 2", len(pairs))
	}
	byK := map[string]string{}
	for _, p := range pairs {
		byK[p.Kalshi.ID] = p.Polymarket.ID
		if p.Method != domain.MatchMethodFuzzy {
			t.Errorf("pair %s method=%s want fuzzy", p.Kalshi.ID, p.Method)
		}
		if p.Confidence < 0.60 || p.Confidence > 1 {
			t.Errorf("pair %s confidence %v outside [threshold,1]", p.Kalshi.ID, p.Confidence)
		}
	}
	if byK["K1"] != "P2" || byK["K2"] != "P1" {
		t.Fatalf("wrong assignment: %v", byK)
	}
}

func TestMatch_NoListingUsedTwice(t *testing.T) {
	close := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := New(0.30, testLogger())
	// Two near-identical Kalshi listings compete for one Polymarket listing.
	pairs := m.Match(
		[]domain.MarketListing{
			kListing("K1", "Will the Lakers win the 2026 NBA finals?", close),
			kListing("K2", "Will the Lakers win the 2026 NBA finals? ", close),
		},
		[]domain.MarketListing{
			pListing("P1", "Lakers to win the 2026 NBA finals", close),
		},
		nil,
	)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs want 1", len(pairs))
	}
	seenK := map[string]bool{}
	seenP := map[string]bool{}
	for _, p := range pairs {
		if seenK[p.Kalshi.ID] || seenP[p.Polymarket.ID] {
			t.Fatalf("listing assigned twice: %+v", p)
		}
		seenK[p.Kalshi.ID] = true
		seenP[p.Polymarket.ID] = true
	}
}

func TestMatch_BelowThresholdUnmatched(t *testing.T) {
	close := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := New(0.75, testLogger())
	pairs := m.Match(
		[]domain.MarketListing{kListing("K1", "Will it snow in Miami in July?", close)},
		[]domain.MarketListing{pListing("P1", "Champions League winner announced by June", close.AddDate(0, 2, 0))},
		nil,
	)
	if len(pairs) != 0 {
		t.Fatalf("got %d pairs want 0: %+v", len(pairs), pairs)
	}
}

func TestMatch_OverrideBeatsHigherScoringFuzzy(t *testing.T) {
	close := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := New(0.50, testLogger())
	pairs := m.Match(
		[]domain.MarketListing{
			kListing("K1", "Will the Fed cut rates in March 2026?", close),
		},
		[]domain.MarketListing{
			// P1 scores higher on text, but the operator pinned K1 to P2.
			pListing("P1", "Will the Fed cut rates in March 2026?", close),
			pListing("P2", "FOMC lowers target range at the March meeting", close),
		},
		map[string]string{"K1": "P2"},
	)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs want 1", len(pairs))
	}
	p := pairs[0]
	if p.Polymarket.ID != "P2" {
		t.Fatalf("override ignored: matched %s", p.Polymarket.ID)
	}
	if p.Method != domain.MatchMethodManual || p.Confidence != 1.0 {
		t.Fatalf("override pair = %+v want manual-override/1.0", p)
	}
}

func TestMatch_OverrideNotSubjectToThreshold(t *testing.T) {
	close := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := New(0.99, testLogger())
	pairs := m.Match(
		[]domain.MarketListing{kListing("K1", "CPI above 3% in February", close)},
		[]domain.MarketListing{pListing("P1", "Totally different proposition", close)},
		map[string]string{"K1": "P1"},
	)
	if len(pairs) != 1 || pairs[0].Method != domain.MatchMethodManual {
		t.Fatalf("override below threshold dropped: %+v", pairs)
	}
}

func TestTimeProximity(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		b    time.Time
		want float64
	}{
		{base.Add(6 * time.Hour), 1.0},
		{base.Add(3 * 24 * time.Hour), 0.7},
		{base.Add(20 * 24 * time.Hour), 0.3},
		{base.Add(60 * 24 * time.Hour), 0},
		{time.Time{}, 0.5},
	}
	for _, c := range cases {
		if got := timeProximity(base, c.b); got != c.want {
			t.Errorf("timeProximity(base, %v)=%v want %v", c.b, got, c.want)
		}
	}
}
