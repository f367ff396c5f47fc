package mimetype

import "testing"

func TestRegisterAll_Wasm(t *testing.T) {
	if err := RegisterAll(nil); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	if got := Lookup("style.wasm"); got != "application/wasm" {
		t.Errorf("Lookup(style.wasm) = %q, want %q", got, "application/wasm")
	}
	if got := Lookup("pkg/SOLVER.WASM"); got != "application/wasm" {
		t.Errorf("Lookup(SOLVER.WASM) = %q, want %q", got, "application/wasm")
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		ext     string
		typ     string
		wantErr bool
	}{
		{name: "with dot", ext: ".isotest", typ: "application/x-isotest"},
		{name: "without dot", ext: "isotest2", typ: "application/x-isotest2"},
		{name: "upper case", ext: ".ISOTEST3", typ: "application/x-isotest3"},
		{name: "empty extension", ext: "", typ: "text/plain", wantErr: true},
		{name: "dot only", ext: ".", typ: "text/plain", wantErr: true},
		{name: "empty type", ext: ".isotest4", typ: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Register(tt.ext, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Register(%q, %q) error = %v, wantErr %v", tt.ext, tt.typ, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := Lookup("file" + normalizeExt(tt.ext)); got != tt.typ {
				t.Errorf("Lookup() = %q, want %q", got, tt.typ)
			}
		})
	}
}

func TestRegister_Idempotent(t *testing.T) {
	for i := 0; i < 2; i++ {
		if err := Register(".isoidem", "application/x-idem"); err != nil {
			t.Fatalf("Register() call %d error = %v", i, err)
		}
	}
	if got := Lookup("a.isoidem"); got != "application/x-idem" {
		t.Errorf("Lookup() = %q, want %q", got, "application/x-idem")
	}
}

func TestLookup_Fallback(t *testing.T) {
	tests := []string{"README", "archive.zz-unknown-ext", "dir/noext"}
	for _, name := range tests {
		if got := Lookup(name); got != Fallback {
			t.Errorf("Lookup(%q) = %q, want %q", name, got, Fallback)
		}
	}
}
