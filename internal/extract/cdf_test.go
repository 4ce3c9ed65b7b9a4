package extract

import (
	"testing"
)

func TestDecodeCDF_RejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("CDF")},
		{"wrong magic", []byte("HDF\x01\x00\x00\x00\x00")},
		{"unsupported version", []byte("CDF\x05\x00\x00\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCDF(tt.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecodeCDF_VariablesAndAttributes(t *testing.T) {
	tf := &testFile{
		dims: []Dimension{
			{Name: "N_PROF", Length: 2},
			{Name: "N_LEVELS", Length: 3},
		},
		globalStrs: map[string]string{"platform_number": "13857"},
	}
	tf.addDoubles("PRES", []int{0, 1}, 99999.0,
		1, 2, 3,
		4, 5, 6)
	tf.addChars("PRES_QC", []int{0, 1}, "111222")

	f, err := DecodeCDF(tf.build())
	if err != nil {
		t.Fatalf("DecodeCDF() error = %v", err)
	}

	if got, ok := f.Attributes["platform_number"].(string); !ok || got != "13857" {
		t.Errorf("global attribute = %v, want 13857", f.Attributes["platform_number"])
	}

	if !f.HasVariable("PRES") || f.HasVariable("TEMP") {
		t.Error("variable presence misreported")
	}

	shape, err := f.Shape("PRES")
	if err != nil {
		t.Fatalf("Shape() error = %v", err)
	}
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("Shape() = %v, want [2 3]", shape)
	}

	if fill, ok := f.VarAttr("PRES", "_FillValue").(float64); !ok || fill != 99999.0 {
		t.Errorf("VarAttr(_FillValue) = %v, want 99999", f.VarAttr("PRES", "_FillValue"))
	}

	vals, err := f.ReadFloats("PRES")
	if err != nil {
		t.Fatalf("ReadFloats() error = %v", err)
	}
	want := []float64{1, 2, 3, 4, 5, 6}
	if len(vals) != len(want) {
		t.Fatalf("ReadFloats() returned %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, vals[i], want[i])
		}
	}

	chars, err := f.ReadChars("PRES_QC")
	if err != nil {
		t.Fatalf("ReadChars() error = %v", err)
	}
	if string(chars) != "111222" {
		t.Errorf("ReadChars() = %q, want 111222", chars)
	}

	// Type mismatches are rejected, not coerced.
	if _, err := f.ReadFloats("PRES_QC"); err == nil {
		t.Error("ReadFloats on char variable should fail")
	}
	if _, err := f.ReadChars("PRES"); err == nil {
		t.Error("ReadChars on numeric variable should fail")
	}
}
