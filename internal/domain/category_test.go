package domain_test

import (
	"testing"

	"github.com/gaqno/financial-app-sub001/internal/domain"
)

func TestDetectCategory(t *testing.T) {
	cases := map[string]string{
		"Aluguel apartamento":  "Moradia",
		"Conta de LUZ":         "Contas",
		"Uber para o trabalho": "Transporte",
		"Salário março":        "Salário",
		"Netflix":              "Lazer",
		"Pró-labore":           "Salário",
		"Presente aniversário": "",
		"Spotify 99":           "Lazer",
		"Corrida 99 pop":       "Transporte",
	}

	for description, want := range cases {
		if got := domain.DetectCategory(description); got != want {
			t.Errorf("DetectCategory(%q): expected %q, got %q", description, want, got)
		}
	}
}

func TestDetectCategory_WholeWordsOnly(t *testing.T) {
	// "gasto" contains "gas" but is not a gas bill
	if got := domain.DetectCategory("gasto extra"); got != "" {
		t.Errorf("expected no category, got %q", got)
	}
}
