package domain

import "strings"

type categoryRule struct {
	category string
	keywords []string
}

// Order matters: the first matching rule wins.
var categoryRules = []categoryRule{
	{"Salário", []string{"salário", "salario", "salary", "pró-labore", "pro-labore", "payroll"}},
	{"Moradia", []string{"aluguel", "condomínio", "condominio", "iptu", "rent"}},
	{"Contas", []string{"luz", "energia", "água", "agua", "internet", "telefone", "celular", "gás", "gas"}},
	{"Alimentação", []string{"mercado", "supermercado", "restaurante", "ifood", "padaria", "lanche", "grocery"}},
	{"Transporte", []string{"uber", "99 pop", "99pop", "99app", "gasolina", "combustível", "combustivel", "ônibus", "onibus", "metrô", "metro", "estacionamento"}},
	{"Saúde", []string{"farmácia", "farmacia", "médico", "medico", "plano de saúde", "dentista", "hospital"}},
	{"Educação", []string{"escola", "faculdade", "curso", "mensalidade"}},
	{"Lazer", []string{"netflix", "spotify", "cinema", "show", "viagem", "streaming"}},
	{"Investimentos", []string{"investimento", "tesouro", "cdb", "ações", "acoes", "dividendos"}},
}

// DetectCategory guesses a category label from a free-text description.
// Returns "" when nothing matches.
func DetectCategory(description string) string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return r == ' ' || r == '/' || r == ',' || r == '.'
	})
	text := " " + strings.Join(words, " ") + " "
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, " "+kw+" ") {
				return rule.category
			}
		}
	}
	return ""
}
