package pdftext

import "testing"

func TestDecodeContentText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "simple Tj literal",
			content: `BT /F1 12 Tf 72 712 Td (ADJUDICASE a la firma) Tj ET`,
			want:    "ADJUDICASE a la firma",
		},
		{
			name:    "TJ array skips kerning numbers",
			content: `BT [(LICITA) -250 (CION) 120 (PUBLICA)] TJ ET`,
			want:    "LICITA CION PUBLICA",
		},
		{
			name:    "escaped parentheses",
			content: `(monto \(total\) $ 100,00) Tj`,
			want:    "monto (total) $ 100,00",
		},
		{
			name:    "escaped backslash and newline",
			content: `(linea uno\nlinea dos \\ fin) Tj`,
			want:    "linea uno\nlinea dos \\ fin",
		},
		{
			name:    "nested parentheses",
			content: `(outer (inner) tail) Tj`,
			want:    "outer (inner) tail",
		},
		{
			name:    "no text operators",
			content: `q 1 0 0 1 0 0 cm /Im0 Do Q`,
			want:    "",
		},
		{
			name:    "multiple literals joined by spaces",
			content: `(uno) Tj (dos) Tj (tres) '`,
			want:    "uno dos tres",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeContentText([]byte(tt.content)); got != tt.want {
				t.Errorf("DecodeContentText = %q, want %q", got, tt.want)
			}
		})
	}
}
