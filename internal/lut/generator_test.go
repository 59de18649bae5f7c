package lut

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	n := 9
	cube, err := Identity(n)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}

	if cube.Size != n || cube.Channels != 3 {
		t.Fatalf("cube shape = (%d,%d), want (%d,3)", cube.Size, cube.Channels, n)
	}

	step := 1.0 / float64(n-1)
	for r := 0; r < n; r++ {
		for g := 0; g < n; g++ {
			for b := 0; b < n; b++ {
				v := cube.At(r, g, b)
				want := [3]float64{float64(r) * step, float64(g) * step, float64(b) * step}
				for ch := 0; ch < 3; ch++ {
					if diff := math.Abs(float64(v[ch]) - want[ch]); diff > 1e-6 {
						t.Fatalf("identity (%d,%d,%d)[%d] = %v, want %v", r, g, b, ch, v[ch], want[ch])
					}
				}
			}
		}
	}
}

func TestGeneratorRejectsTinySize(t *testing.T) {
	if _, err := Identity(1); err == nil {
		t.Error("Identity(1) should fail")
	}
}

func TestGamma(t *testing.T) {
	cube, err := Gamma(5, 2.0)
	if err != nil {
		t.Fatalf("Gamma() error = %v", err)
	}

	// 0 and 1 are fixed points; 0.5 squares to 0.25.
	v := cube.At(0, 0, 0)
	if v[0] != 0 {
		t.Errorf("gamma at 0 = %v, want 0", v[0])
	}
	v = cube.At(4, 4, 4)
	if math.Abs(float64(v[0])-1) > 1e-6 {
		t.Errorf("gamma at 1 = %v, want 1", v[0])
	}
	v = cube.At(2, 2, 2)
	if math.Abs(float64(v[0])-0.25) > 1e-6 {
		t.Errorf("gamma at 0.5 = %v, want 0.25", v[0])
	}
}

func TestDesaturate(t *testing.T) {
	t.Run("full desaturation collapses to gray", func(t *testing.T) {
		cube, err := Desaturate(5, 1.0)
		if err != nil {
			t.Fatalf("Desaturate() error = %v", err)
		}
		for r := 0; r < 5; r++ {
			for g := 0; g < 5; g++ {
				for b := 0; b < 5; b++ {
					v := cube.At(r, g, b)
					if math.Abs(float64(v[0]-v[1])) > 1e-5 || math.Abs(float64(v[1]-v[2])) > 1e-5 {
						t.Fatalf("(%d,%d,%d) = %v, want equal channels", r, g, b, v)
					}
				}
			}
		}
	})

	t.Run("zero amount is identity", func(t *testing.T) {
		cube, err := Desaturate(5, 0)
		if err != nil {
			t.Fatalf("Desaturate() error = %v", err)
		}
		ident, _ := Identity(5)
		for i := range cube.Data {
			if math.Abs(float64(cube.Data[i]-ident.Data[i])) > 1e-5 {
				t.Fatalf("value %d = %v, want %v", i, cube.Data[i], ident.Data[i])
			}
		}
	})

	t.Run("gray axis unchanged", func(t *testing.T) {
		cube, err := Desaturate(5, 0.5)
		if err != nil {
			t.Fatalf("Desaturate() error = %v", err)
		}
		for i := 0; i < 5; i++ {
			v := cube.At(i, i, i)
			want := float64(i) / 4
			for ch := 0; ch < 3; ch++ {
				if math.Abs(float64(v[ch])-want) > 1e-5 {
					t.Errorf("gray point %d channel %d = %v, want %v", i, ch, v[ch], want)
				}
			}
		}
	})
}

func TestContrast(t *testing.T) {
	cube, err := Contrast(3, 2.0)
	if err != nil {
		t.Fatalf("Contrast() error = %v", err)
	}

	// Mid-gray is the pivot.
	v := cube.At(1, 1, 1)
	if math.Abs(float64(v[0])-0.5) > 1e-6 {
		t.Errorf("contrast midpoint = %v, want 0.5", v[0])
	}
	// Extremes push outward (no clamping in the generator either).
	v = cube.At(2, 2, 2)
	if math.Abs(float64(v[0])-1.5) > 1e-6 {
		t.Errorf("contrast at 1.0 = %v, want 1.5", v[0])
	}
}

func TestWarmShift(t *testing.T) {
	cube, err := WarmShift(5, 1.0)
	if err != nil {
		t.Fatalf("WarmShift() error = %v", err)
	}

	// Mid-gray gains red and loses blue.
	v := cube.At(2, 2, 2)
	if v[0] <= 0.5 {
		t.Errorf("warm shift red = %v, want > 0.5", v[0])
	}
	if math.Abs(float64(v[1])-0.5) > 1e-6 {
		t.Errorf("warm shift green = %v, want 0.5", v[1])
	}
	if v[2] >= 0.5 {
		t.Errorf("warm shift blue = %v, want < 0.5", v[2])
	}

	// Zero amount is identity.
	flat, err := WarmShift(5, 0)
	if err != nil {
		t.Fatalf("WarmShift() error = %v", err)
	}
	ident, _ := Identity(5)
	for i := range flat.Data {
		if flat.Data[i] != ident.Data[i] {
			t.Fatalf("value %d = %v, want %v", i, flat.Data[i], ident.Data[i])
		}
	}
}

func TestHueRotateFixedGray(t *testing.T) {
	cube, err := HueRotate(5, 120)
	if err != nil {
		t.Fatalf("HueRotate() error = %v", err)
	}

	// Neutral axis has no hue; rotation must leave it in place.
	for i := 0; i < 5; i++ {
		v := cube.At(i, i, i)
		want := float64(i) / 4
		for ch := 0; ch < 3; ch++ {
			if math.Abs(float64(v[ch])-want) > 1e-5 {
				t.Errorf("gray point %d channel %d = %v, want %v", i, ch, v[ch], want)
			}
		}
	}
}
