package indicator

import (
	"encoding/json"
	"testing"
)

func TestSMASeries_WindowAlignment(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19}
	got := SMASeries(closes, 4)

	if len(got) != len(closes) {
		t.Fatalf("len = %d, want %d", len(got), len(closes))
	}
	for i := 0; i < 3; i++ {
		if got[i].Valid {
			t.Errorf("index %d: expected undefined before window fills, got %v", i, got[i].Float64)
		}
	}
	// Hand-computed windows of 4.
	want := map[int]float64{
		3: (10 + 12 + 11 + 13) / 4.0, // 11.5
		4: (12 + 11 + 13 + 15) / 4.0, // 12.75
		5: (11 + 13 + 15 + 14) / 4.0, // 13.25
		6: (13 + 15 + 14 + 16) / 4.0, // 14.5
		7: (15 + 14 + 16 + 18) / 4.0, // 15.75
		8: (14 + 16 + 18 + 17) / 4.0, // 16.25
		9: (16 + 18 + 17 + 19) / 4.0, // 17.5
	}
	for i, w := range want {
		if !got[i].Valid {
			t.Errorf("index %d: expected defined value", i)
			continue
		}
		assertClose(t, "SMA(4) window", got[i].Float64, w, 1e-9)
	}
}

func TestSMASeries_PeriodLongerThanSeries(t *testing.T) {
	got := SMASeries([]float64{1, 2, 3}, 5)
	for i, v := range got {
		if v.Valid {
			t.Errorf("index %d: expected undefined", i)
		}
	}
}

func TestSeries_NonPositivePeriod(t *testing.T) {
	for _, p := range []int{0, -3} {
		for _, v := range SMASeries([]float64{1, 2, 3}, p) {
			if v.Valid {
				t.Errorf("SMA period %d: expected undefined", p)
			}
		}
		for _, v := range RSISeries([]float64{1, 2, 3}, p) {
			if v.Valid {
				t.Errorf("RSI period %d: expected undefined", p)
			}
		}
	}
}

func TestRSISeries_DefinedFromPeriod(t *testing.T) {
	closes := []float64{44.00, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10}
	got := RSISeries(closes, 5)
	for i := 0; i < 5; i++ {
		if got[i].Valid {
			t.Errorf("index %d: expected undefined", i)
		}
	}
	if !got[5].Valid || !got[6].Valid {
		t.Fatal("expected RSI defined from index 5")
	}
	assertClose(t, "RSI(5)[5]", got[5].Float64, 68.112, 0.1)
}

func TestRSISeries_Bounds(t *testing.T) {
	// Saw-tooth with growing amplitude: exercises both branches.
	closes := make([]float64, 120)
	p := 100.0
	for i := range closes {
		step := float64(i%7) * 0.8
		if i%3 == 0 {
			p -= step * 1.7
		} else {
			p += step
		}
		closes[i] = p
	}
	for i, v := range RSISeries(closes, 14) {
		if v.Valid && (v.Float64 < 0 || v.Float64 > 100) {
			t.Errorf("index %d: RSI %.4f outside [0,100]", i, v.Float64)
		}
	}
}

func TestRSISeries_MonotoneSegments(t *testing.T) {
	up := make([]float64, 20)
	down := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 100 - float64(i)
	}
	for i, v := range RSISeries(up, 14) {
		if v.Valid && v.Float64 != 100 {
			t.Errorf("all-gain index %d: RSI %.4f, want 100", i, v.Float64)
		}
	}
	for i, v := range RSISeries(down, 14) {
		if v.Valid && v.Float64 != 0 {
			t.Errorf("all-loss index %d: RSI %.4f, want 0", i, v.Float64)
		}
	}
}

func TestNullFloat_JSON(t *testing.T) {
	b, err := json.Marshal([]NullFloat{{}, Some(1.5)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[null,1.5]" {
		t.Errorf("got %s, want [null,1.5]", b)
	}

	var back []NullFloat
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back[0].Valid || !back[1].Valid || back[1].Float64 != 1.5 {
		t.Errorf("unexpected decode: %+v", back)
	}
}
