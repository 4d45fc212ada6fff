package tender

import "testing"

func TestParseName(t *testing.T) {
	tests := []struct {
		name   string
		nombre string
		want   Fields
	}{
		{
			name:   "type stage and code",
			nombre: "Licitación Pública / Llamado N° 401-0086-LPU25",
			want:   Fields{Tipo: "Licitación Pública", Etapa: "Llamado", Codigo: "401-0086-LPU25"},
		},
		{
			name:   "contratacion menor preadjudicacion",
			nombre: "Contratación Menor / Preadjudicación N° 412-2710-CME25",
			want:   Fields{Tipo: "Contratación Menor", Etapa: "Preadjudicación", Codigo: "412-2710-CME25"},
		},
		{
			name:   "stage without code",
			nombre: "Licitación Pública / Circular con Consulta",
			want:   Fields{Tipo: "Licitación Pública", Etapa: "Circular con Consulta"},
		},
		{
			name:   "no separator yields zero fields",
			nombre: "Resolución 123/2025",
			want:   Fields{},
		},
		{
			name:   "loose spacing around slash",
			nombre: "Subasta   /   Adjudicación N° 99-SUB25",
			want:   Fields{Tipo: "Subasta", Etapa: "Adjudicación", Codigo: "99-SUB25"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseName(tt.nombre)
			if got != tt.want {
				t.Errorf("ParseName(%q) = %+v, want %+v", tt.nombre, got, tt.want)
			}
		})
	}
}

func TestParseNameWithSumario(t *testing.T) {
	tests := []struct {
		name      string
		nombre    string
		sumario   string
		wantEtapa string
	}{
		{
			name:      "sumario marks apertura when name has no stage",
			nombre:    "Licitación Pública N° 123",
			sumario:   "Fecha de apertura: 12 de mayo de 2025 a las 11:00 hs.",
			wantEtapa: "Apertura",
		},
		{
			name:      "apertura colon variant",
			nombre:    "Contratación Directa",
			sumario:   "Apertura: 01/06/2025",
			wantEtapa: "Apertura",
		},
		{
			name:      "name stage wins over sumario",
			nombre:    "Licitación Pública / Llamado N° 1",
			sumario:   "Fecha de apertura: mañana",
			wantEtapa: "Llamado",
		},
		{
			name:      "no stage anywhere",
			nombre:    "Licitación Pública",
			sumario:   "Objeto: adquisición de insumos.",
			wantEtapa: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNameWithSumario(tt.nombre, tt.sumario)
			if got.Etapa != tt.wantEtapa {
				t.Errorf("etapa = %q, want %q", got.Etapa, tt.wantEtapa)
			}
		})
	}
}

func TestNormalizeStage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Llamado", "llamado"},
		{"Preadjudicación", "preadjudicacion"},
		{"preadjudicacion", "preadjudicacion"},
		{"ADJUDICACIÓN", "adjudicacion"},
		{"Prórroga", "prorroga"},
		{"Circular con Consulta", "circular_con_consulta"},
		{"Circular sin Consulta", "circular_sin_consulta"},
		{"Corrección", "correccion"},
		{"  Apertura  ", "apertura"},
		{"Fe de Erratas", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeStage(tt.in); got != tt.want {
			t.Errorf("NormalizeStage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	in := "ADJUDICASE  a la\nfirma   ACME S.A.\n\nla suma de $ 100,00"
	want := "ADJUDICASE a la firma ACME S.A. la suma de $ 100,00"
	if got := CleanText(in); got != want {
		t.Errorf("CleanText = %q, want %q", got, want)
	}
}
