package unit

import "testing"

func TestConvertTemperatureRoundTrip(t *testing.T) {
	for _, c := range []float64{-40, -17.5, 0, 21, 37, 100} {
		f := ConvertTemperature(c, Celsius, Fahrenheit)
		back := ConvertTemperature(f, Fahrenheit, Celsius)
		if diff := back - c; diff > 1 || diff < -1 {
			t.Fatalf("round trip for %v: got %v back (diff %v)", c, back, diff)
		}
	}
}

func TestConvertTemperatureNoopSameUnit(t *testing.T) {
	if v := ConvertTemperature(72, Fahrenheit, Fahrenheit); v != 72 {
		t.Fatalf("expected no-op, got %v", v)
	}
}

func TestConvertTemperatureNormalizesNOAASpelling(t *testing.T) {
	if v := ConvertTemperature(0, CelsiusNOAA, Celsius); v != 0 {
		t.Fatalf("expected no-op after normalization, got %v", v)
	}
	f := ConvertTemperature(100, CelsiusNOAA, Fahrenheit)
	if f != 212 {
		t.Fatalf("expected 212, got %v", f)
	}
}
