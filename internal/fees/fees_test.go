package fees

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

func TestKalshiRate_Tiers(t *testing.T) {
	cases := []struct {
		volume float64
		side   domain.OrderSide
		want   float64
	}{
		{0, domain.SideTaker, 0.025},
		{2_499, domain.SideTaker, 0.025},
		{2_500, domain.SideTaker, 0.020},
		{10_000, domain.SideTaker, 0.015},
		{25_000, domain.SideTaker, 0.010},
		{1_000_000, domain.SideTaker, 0.010},
		{0, domain.SideMaker, 0.0125},
		{25_000, domain.SideMaker, 0.005},
	}
	for _, c := range cases {
		if got := KalshiRate(c.side, c.volume); got != c.want {
			t.Errorf("KalshiRate(%s, %.0f)=%v want %v", c.side, c.volume, got, c.want)
		}
	}
}

func TestKalshiRate_NonIncreasingInVolume(t *testing.T) {
	volumes := []float64{0, 1_000, 2_500, 5_000, 10_000, 20_000, 25_000, 100_000}
	prev := math.Inf(1)
	for _, v := range volumes {
		r := KalshiRate(domain.SideTaker, v)
		if r > prev {
			t.Fatalf("rate increased with volume: %v -> %v at volume %.0f", prev, r, v)
		}
		prev = r
	}
}

func TestFee_KalshiRoundsUpToCent(t *testing.T) {
	s := DefaultSchedule()
	// 2.5% x 0.55 x 5 = 0.06875 -> 0.07
	fee, err := s.Fee(Input{
		Venue: domain.VenueKalshi,
		Side:  domain.SideTaker,
		Price: 0.55,
		Size:  5,
	})
	if err != nil {
		t.Fatalf("Fee: %v", err)
	}
	if fee != 0.07 {
		t.Fatalf("fee=%v want 0.07", fee)
	}
}

func TestFee_MonotonicInSize(t *testing.T) {
	s := DefaultSchedule()
	for _, venue := range []domain.Venue{domain.VenueKalshi, domain.VenuePolymarket} {
		for _, size := range []float64{0.5, 1, 3, 7, 50} {
			small, err := s.Fee(Input{
				Venue: venue, Side: domain.SideTaker,
				Price: 0.42, Size: size, RealizedProfit: 0.03 * size,
			})
			if err != nil {
				t.Fatalf("Fee(%s, size=%v): %v", venue, size, err)
			}
			big, err := s.Fee(Input{
				Venue: venue, Side: domain.SideTaker,
				Price: 0.42, Size: 2 * size, RealizedProfit: 0.03 * 2 * size,
			})
			if err != nil {
				t.Fatalf("Fee(%s, size=%v): %v", venue, 2*size, err)
			}
			if big < small {
				t.Errorf("%s: fee(2x)=%v < fee(x)=%v at size %v", venue, big, small, size)
			}
		}
	}
}

func TestFee_PolymarketProfitBase(t *testing.T) {
	s := DefaultSchedule()
	// 2% of $0.15 profit + $0.01 surcharge = $0.013.
	fee, err := s.Fee(Input{
		Venue:          domain.VenuePolymarket,
		Side:           domain.SideTaker,
		Price:          0.42,
		Size:           5,
		RealizedProfit: 0.15,
	})
	if err != nil {
		t.Fatalf("Fee: %v", err)
	}
	if math.Abs(fee-0.013) > 1e-9 {
		t.Fatalf("fee=%v want 0.013", fee)
	}
}

func TestFee_PolymarketLosingTradePaysOnlySurcharge(t *testing.T) {
	s := DefaultSchedule()
	fee, err := s.Fee(Input{
		Venue:          domain.VenuePolymarket,
		Side:           domain.SideTaker,
		Price:          0.42,
		Size:           5,
		RealizedProfit: -2.0,
	})
	if err != nil {
		t.Fatalf("Fee: %v", err)
	}
	if fee != s.PolySurcharge {
		t.Fatalf("fee=%v want surcharge %v", fee, s.PolySurcharge)
	}
}

func TestFee_PolymarketCappedAtPayout(t *testing.T) {
	s := Schedule{PolyProfitRate: 0.5, PolySurcharge: 10}
	fee, err := s.Fee(Input{
		Venue:          domain.VenuePolymarket,
		Side:           domain.SideTaker,
		Price:          0.42,
		Size:           2,
		RealizedProfit: 100,
	})
	if err != nil {
		t.Fatalf("Fee: %v", err)
	}
	if fee != 2 { // $1 payout per contract, 2 contracts
		t.Fatalf("fee=%v want payout cap 2", fee)
	}
}

func TestFee_RejectsMalformedInput(t *testing.T) {
	s := DefaultSchedule()
	bad := []Input{
		{Venue: domain.VenueKalshi, Side: domain.SideTaker, Price: 0, Size: 5},
		{Venue: domain.VenueKalshi, Side: domain.SideTaker, Price: 1.2, Size: 5},
		{Venue: domain.VenueKalshi, Side: domain.SideTaker, Price: 0.5, Size: 0},
		{Venue: domain.VenueKalshi, Side: domain.SideTaker, Price: 0.5, Size: -3},
		{Venue: domain.VenueKalshi, Side: domain.SideTaker, Price: math.NaN(), Size: 5},
	}
	for i, in := range bad {
		if _, err := s.Fee(in); !errors.Is(err, domain.ErrMalformedListing) {
			t.Errorf("case %d: err=%v want ErrMalformedListing", i, err)
		}
	}
}
