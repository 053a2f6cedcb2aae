package technical

import (
	"math"
	"testing"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
)

func dailySeries(symbol string, closes []float64, volume float64) contracts.TimeSeries {
	s := contracts.TimeSeries{Symbol: symbol}
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Points = append(s.Points, contracts.Point{
			Date:   start.AddDate(0, 0, i),
			Close:  c,
			Volume: volume,
		})
	}
	return s
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 4000 + float64(i)
	}
	return closes
}

func TestComputeFeaturesRisingMarket(t *testing.T) {
	series := dailySeries("^spx", risingCloses(250), 2.5e9)

	feat, err := ComputeFeatures(series)
	if err != nil {
		t.Fatalf("ComputeFeatures failed: %v", err)
	}

	if feat.Symbol != "^spx" {
		t.Errorf("Expected symbol ^spx, got %s", feat.Symbol)
	}
	if feat.Close != 4249 {
		t.Errorf("Expected latest close 4249, got %v", feat.Close)
	}

	if feat.MA20 == nil || feat.MA75 == nil || feat.MA200 == nil {
		t.Fatal("Expected all moving averages for a 250-point series")
	}

	// Rising series: every MA sits below the latest close
	if *feat.MA20 >= feat.Close || *feat.MA75 >= feat.Close || *feat.MA200 >= feat.Close {
		t.Error("Expected moving averages below latest close in a rising market")
	}

	// MA20 of the last 20 closes: mean of 4230..4249
	wantMA20 := 4239.5
	if math.Abs(*feat.MA20-wantMA20) > 1e-9 {
		t.Errorf("Expected MA20 %v, got %v", wantMA20, *feat.MA20)
	}

	if feat.TrendDirection != contracts.TrendUp {
		t.Errorf("Expected upward trend, got %d", feat.TrendDirection)
	}

	if feat.PriceVsMA200Pct == nil || *feat.PriceVsMA200Pct <= 0 {
		t.Error("Expected positive distance from MA200")
	}

	// Steady +1 point drift has tiny return variance
	if feat.VolatilityBucket != contracts.VolatilityLow {
		t.Errorf("Expected low volatility bucket, got %s", feat.VolatilityBucket)
	}

	// Constant volume: ratio is 1
	if math.Abs(feat.VolumeRatio-1.0) > 1e-9 {
		t.Errorf("Expected volume ratio 1.0, got %v", feat.VolumeRatio)
	}
}

func TestComputeFeaturesShortSeries(t *testing.T) {
	series := dailySeries("^nkx", risingCloses(10), 1e9)

	feat, err := ComputeFeatures(series)
	if err != nil {
		t.Fatalf("ComputeFeatures failed: %v", err)
	}

	if feat.MA20 != nil || feat.MA75 != nil || feat.MA200 != nil {
		t.Error("Expected nil moving averages for a 10-point series")
	}
	if feat.TrendDirection != contracts.TrendFlat {
		t.Errorf("Expected flat trend without MA75, got %d", feat.TrendDirection)
	}
	if feat.PriceVsMA200Pct != nil {
		t.Error("Expected nil MA200 distance")
	}
	if feat.Volatility != 0 {
		t.Errorf("Expected zero volatility for short series, got %v", feat.Volatility)
	}
}

func TestComputeFeaturesEmptySeries(t *testing.T) {
	_, err := ComputeFeatures(contracts.TimeSeries{Symbol: "^spx"})
	if err == nil {
		t.Fatal("Expected error for empty series")
	}
}

func TestComputeFeaturesHighVolatility(t *testing.T) {
	// Alternate +3%/-3% daily: annualized stddev well above the high cutoff
	closes := make([]float64, 60)
	closes[0] = 4000
	for i := 1; i < len(closes); i++ {
		if i%2 == 0 {
			closes[i] = closes[i-1] * 1.03
		} else {
			closes[i] = closes[i-1] * 0.97
		}
	}

	feat, err := ComputeFeatures(dailySeries("^spx", closes, 1e9))
	if err != nil {
		t.Fatal(err)
	}

	if feat.VolatilityBucket != contracts.VolatilityHigh {
		t.Errorf("Expected high volatility bucket, got %s (vol=%v)", feat.VolatilityBucket, feat.Volatility)
	}
}

func TestBucketVolatility(t *testing.T) {
	tests := []struct {
		vol  float64
		want contracts.VolatilityBucket
	}{
		{0.05, contracts.VolatilityLow},
		{0.149, contracts.VolatilityLow},
		{0.15, contracts.VolatilityMedium},
		{0.20, contracts.VolatilityMedium},
		{0.25, contracts.VolatilityMedium},
		{0.26, contracts.VolatilityHigh},
		{0.60, contracts.VolatilityHigh},
	}

	for _, tt := range tests {
		if got := bucketVolatility(tt.vol); got != tt.want {
			t.Errorf("bucketVolatility(%v) = %s, want %s", tt.vol, got, tt.want)
		}
	}
}

func monthlySeries(symbol string, values []float64) contracts.TimeSeries {
	s := contracts.TimeSeries{Symbol: symbol}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		s.Points = append(s.Points, contracts.Point{
			Date:  start.AddDate(0, i, 0),
			Close: v,
		})
	}
	return s
}

func TestComputeMacro(t *testing.T) {
	// 30 daily policy rate points, rising
	policy := dailySeries("DFF", func() []float64 {
		vals := make([]float64, 30)
		for i := range vals {
			vals[i] = 4.0 + float64(i)*0.01
		}
		return vals
	}(), 0)

	longRate := dailySeries("DGS10", []float64{4.2, 4.25, 4.3}, 0)

	// 14 monthly CPI points with steady 0.25% monthly growth
	cpiValues := make([]float64, 14)
	cpiValues[0] = 300
	for i := 1; i < len(cpiValues); i++ {
		cpiValues[i] = cpiValues[i-1] * 1.0025
	}
	cpi := monthlySeries("CPIAUCSL", cpiValues)

	feat := ComputeMacro("US", policy, longRate, cpi)

	if feat.Country != "US" {
		t.Errorf("Expected country US, got %s", feat.Country)
	}
	if feat.PolicyRate == nil {
		t.Fatal("Expected policy rate")
	}
	if feat.PolicyRateTrend != contracts.TrendUp {
		t.Errorf("Expected rising policy rate trend, got %d", feat.PolicyRateTrend)
	}
	if feat.LongTermRate == nil || *feat.LongTermRate != 4.3 {
		t.Error("Expected long term rate 4.3")
	}

	if feat.CPIYoY == nil {
		t.Fatal("Expected CPI YoY")
	}
	// 12 months of 0.25% compounding: about 3.04%
	wantYoY := (math.Pow(1.0025, 12) - 1) * 100
	if math.Abs(*feat.CPIYoY-wantYoY) > 1e-6 {
		t.Errorf("Expected CPI YoY %v, got %v", wantYoY, *feat.CPIYoY)
	}
	// Constant growth rate: YoY unchanged month over month
	if feat.CPITrend != contracts.TrendFlat {
		t.Errorf("Expected flat CPI trend, got %d", feat.CPITrend)
	}
}

func TestComputeMacroEmptySeries(t *testing.T) {
	feat := ComputeMacro("JP", contracts.TimeSeries{}, contracts.TimeSeries{}, contracts.TimeSeries{})

	if feat.PolicyRate != nil || feat.LongTermRate != nil || feat.CPIYoY != nil {
		t.Error("Expected nil indicators for empty series")
	}
	if feat.PolicyRateTrend != contracts.TrendFlat || feat.CPITrend != contracts.TrendFlat {
		t.Error("Expected flat trends for empty series")
	}
}

func TestComputeMacroCPITooShort(t *testing.T) {
	// Only 6 monthly points: not enough for YoY
	cpi := monthlySeries("CPIAUCSL", []float64{300, 301, 302, 303, 304, 305})

	feat := ComputeMacro("US", contracts.TimeSeries{}, contracts.TimeSeries{}, cpi)
	if feat.CPIYoY != nil {
		t.Error("Expected nil CPI YoY with fewer than 13 observations")
	}
}

func TestComputeValuation(t *testing.T) {
	per := monthlySeries("SP500_PER", []float64{27.8, 28.45, 28.91})

	feat := ComputeValuation("US", per)
	if feat.PER == nil || *feat.PER != 28.91 {
		t.Fatal("Expected PER 28.91")
	}
	if feat.PERTrend != contracts.TrendUp {
		t.Errorf("Expected rising PER trend, got %d", feat.PERTrend)
	}

	empty := ComputeValuation("JP", contracts.TimeSeries{})
	if empty.PER != nil {
		t.Error("Expected nil PER for empty series")
	}
}
