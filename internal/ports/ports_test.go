package ports

import (
	"errors"
	"reflect"
	"testing"

	"github.com/JadenB9/mode/internal/scanerr"
)

func TestParseRange_Valid(t *testing.T) {
	cases := map[string][]uint16{
		"22":               {22},
		"80,443":           {80, 443},
		"443,80":           {80, 443},
		"1-3":              {1, 2, 3},
		"1-3,2,5-5":        {1, 2, 3, 5},
		" 80 , 443 ":       {80, 443},
		"80,443,8000-8002": {80, 443, 8000, 8001, 8002},
		"65535":            {65535},
		"65534-65535":      {65534, 65535},
	}
	for expr, want := range cases {
		t.Run(expr, func(t *testing.T) {
			got, err := ParseRange(expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v want %v", got, want)
			}
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	cases := []string{
		"",        // empty
		"0",       // port zero
		"0-10",    // range starting at zero
		"100-50",  // reversed range
		"65536",   // out of range
		"1-70000", // out of range in range
		"abc",     // non-numeric
		"1-2-3",   // too many range parts
		"-5",      // missing start
		"80,",     // empty token
	}
	for _, expr := range cases {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseRange(expr)
			if err == nil {
				t.Fatalf("expected error for %q", expr)
			}
			if !scanerr.Is(err, scanerr.InvalidPortRange) {
				t.Fatalf("expected InvalidPortRange, got %v", err)
			}
		})
	}
}

func TestParseRange_Empty(t *testing.T) {
	for _, expr := range []string{"", "   "} {
		_, err := ParseRange(expr)
		var se *scanerr.Error
		if !errors.As(err, &se) || se.Kind != scanerr.InvalidPortRange {
			t.Fatalf("expected InvalidPortRange for %q, got %v", expr, err)
		}
		if se.Message != "No valid ports specified" {
			t.Fatalf("unexpected message for %q: %s", expr, se.Message)
		}
	}
}

func TestParseRange_SortedUniqueInBounds(t *testing.T) {
	exprs := []string{"9000-9010,22,22,80-85,1", "5,4,3,2,1", "100-200,150-250"}
	for _, expr := range exprs {
		got, err := ParseRange(expr)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", expr, err)
		}
		for i, p := range got {
			if p < 1 {
				t.Fatalf("%q: port %d out of bounds", expr, p)
			}
			if i > 0 && got[i-1] >= p {
				t.Fatalf("%q: not strictly ascending at %d: %v", expr, i, got)
			}
		}
	}
}

func TestQuickScanDeterministic(t *testing.T) {
	first := QuickScan.Ports()
	if len(first) != 14 {
		t.Fatalf("expected 14 quick ports, got %d", len(first))
	}
	for i := 0; i < 5; i++ {
		if got := QuickScan.Ports(); !reflect.DeepEqual(got, first) {
			t.Fatalf("call %d returned %v, want %v", i, got, first)
		}
	}

	// mutating a returned slice must not leak into later calls
	first[0] = 9
	if QuickScan.Ports()[0] != 21 {
		t.Fatal("preset was mutated through a returned slice")
	}
}

func TestFullScanCoversAllPorts(t *testing.T) {
	got := FullScan.Ports()
	if len(got) != 65535 {
		t.Fatalf("expected 65535 ports, got %d", len(got))
	}
	if got[0] != 1 || got[len(got)-1] != 65535 {
		t.Fatalf("unexpected bounds %d..%d", got[0], got[len(got)-1])
	}
}

func TestStandardScanPreset(t *testing.T) {
	got := StandardScan.Ports()
	if len(got) != 92 {
		t.Fatalf("expected 92 standard ports, got %d", len(got))
	}
	if got[0] != 21 || got[21] != 20 {
		t.Fatalf("preset order not preserved: %v", got[:22])
	}
}

func TestResolve(t *testing.T) {
	got, err := Resolve(StandardScan, "ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 92 {
		t.Fatalf("expected 92 ports, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("resolved set not ascending at %d", i)
		}
	}

	custom, err := Resolve(CustomRange, "443,80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(custom, []uint16{80, 443}) {
		t.Fatalf("got %v", custom)
	}

	if _, err := Resolve(CustomRange, ""); !scanerr.Is(err, scanerr.InvalidPortRange) {
		t.Fatalf("expected InvalidPortRange for empty custom range, got %v", err)
	}
}

func TestParseScanType(t *testing.T) {
	cases := map[string]ScanType{
		"quick":    QuickScan,
		"":         QuickScan,
		"Standard": StandardScan,
		"full":     FullScan,
		"custom":   CustomRange,
	}
	for name, want := range cases {
		got, err := ParseScanType(name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if got != want {
			t.Fatalf("%q: got %v want %v", name, got, want)
		}
	}
	if _, err := ParseScanType("stealth"); err == nil {
		t.Fatal("expected error for unknown scan type")
	}
}

func TestScanTypeNames(t *testing.T) {
	want := []string{"Quick Scan", "Standard Scan", "Full Scan", "Custom Range"}
	for i, st := range AllScanTypes() {
		if st.Name() != want[i] {
			t.Fatalf("index %d: got %q want %q", i, st.Name(), want[i])
		}
		if st.Description() == "" {
			t.Fatalf("%s has no description", st.Name())
		}
	}
}
