package resolve

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Construcción", "CONSTRUCCION"},
		{"pérez y garcía s.r.l.", "PEREZ Y GARCIA S.R.L."},
		{"ACME", "ACME"},
		{"ñandú", "NANDU"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme s.a.", "ACME S.A."},
		{"Acme S. A.", "ACME S.A."},
		{"Acme SA.", "ACME S.A."},
		{"Constructora del Sur S.R.L.", "CONSTRUCTORA DEL SUR S.R.L."},
		{"Constructora del Sur SRL", "CONSTRUCTORA DEL SUR S.R.L."},
		{"Hermanos Perez S.E.N.C.", "HERMANOS PEREZ S.E.N.C."},
		{"Startup Moderna SAS", "STARTUP MODERNA S.A.S."},
		{"Empresa sin sufijo", "EMPRESA SIN SUFIJO"},
	}
	for _, tt := range tests {
		if got := NormalizeCompanyName(tt.in); got != tt.want {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseOCIDSupplier(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantPais string
		wantCUIT string
		wantOK   bool
	}{
		{
			name:     "formatted cuit",
			id:       "AR-CUIT-30-12345678-9-supplier",
			wantPais: "AR",
			wantCUIT: "30-12345678-9",
			wantOK:   true,
		},
		{
			name:     "unformatted cuit digits",
			id:       "AR-CUIT-30123456789-supplier",
			wantPais: "AR",
			wantCUIT: "30-12345678-9",
			wantOK:   true,
		},
		{
			name:   "not a supplier",
			id:     "AR-CUIT-30-12345678-9-buyer",
			wantOK: false,
		},
		{
			name:   "wrong digit count",
			id:     "AR-CUIT-3012345-supplier",
			wantOK: false,
		},
		{
			name:   "empty",
			id:     "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pais, cuit, ok := ParseOCIDSupplier(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if pais != tt.wantPais || cuit != tt.wantCUIT {
				t.Errorf("got (%q, %q), want (%q, %q)", pais, cuit, tt.wantPais, tt.wantCUIT)
			}
		})
	}
}
