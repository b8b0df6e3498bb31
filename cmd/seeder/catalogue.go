package main

import "github.com/ilramdhan/farmcalc/pkg/calculation"

type sampleCategory struct {
	Name        string
	Description string
	Icon        string
}

type sampleCalculation struct {
	Category    string
	Name        string
	Description string
	Tags        []string
	Definition  calculation.Definition
}

var sampleCategories = []sampleCategory{
	{Name: "Solo", Description: "Correção e fertilidade do solo", Icon: "layers"},
	{Name: "Plantio", Description: "Densidade e sementes", Icon: "sprout"},
	{Name: "Colheita", Description: "Estimativas de produtividade", Icon: "wheat"},
	{Name: "Pulverização", Description: "Calda e defensivos", Icon: "droplets"},
}

func num(label, unit string, required bool, def string) calculation.Parameter {
	return calculation.Parameter{Label: label, Unit: unit, Required: required, Default: def}
}

func named(name string, p calculation.Parameter) calculation.Parameter {
	p.Name = name
	return p
}

var sampleCalculations = []sampleCalculation{
	{
		Category:    "Solo",
		Name:        "Calagem por saturação de bases",
		Description: "Necessidade de calcário pelo método da saturação por bases",
		Tags:        []string{"calcario", "correcao"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("v2", num("Saturação desejada (V2)", "%", true, "70")),
				named("v1", num("Saturação atual (V1)", "%", true, "")),
				named("ctc", num("CTC a pH 7", "cmolc/dm³", true, "")),
				named("prnt", num("PRNT do calcário", "%", false, "80")),
				named("area", num("Área", "ha", false, "1")),
			},
			Results: []calculation.Result{
				{Name: "Dose", Expression: "(v2 - v1) * ctc / prnt", Unit: "t/ha"},
				{Name: "Total", Expression: "(v2 - v1) * ctc / prnt * area", Unit: "t"},
			},
		},
	},
	{
		Category:    "Solo",
		Name:        "Gessagem",
		Description: "Dose de gesso agrícola pelo teor de argila",
		Tags:        []string{"gesso"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("argila", num("Argila", "%", true, "")),
			},
			Results: []calculation.Result{
				{Name: "Dose", Expression: "50 * argila", Unit: "kg/ha"},
			},
		},
	},
	{
		Category:    "Solo",
		Name:        "Adubação por área",
		Description: "Formato antigo com nomes de parâmetros em texto livre",
		Tags:        []string{"adubo", "legado"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				{Name: "Quantidade Desejada de Adubo", Unit: "kg/ha", Required: true},
				{Name: "Área", Unit: "ha", Required: true},
			},
			Expression: "Quantidade Desejada de Adubo * Área",
			ResultName: "Adubo total",
			ResultUnit: "kg",
		},
	},
	{
		Category:    "Plantio",
		Name:        "Sementes por hectare",
		Description: "Quantidade de sementes corrigida pela germinação",
		Tags:        []string{"plantio", "sementes"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("populacao", num("População desejada", "plantas/ha", true, "")),
				named("germinacao", num("Germinação", "%", false, "90")),
				named("vigor", num("Vigor", "%", false, "100")),
			},
			Results: []calculation.Result{
				{Name: "Sementes", Expression: "populacao / (germinacao / 100) / (vigor / 100)", Unit: "sementes/ha"},
			},
		},
	},
	{
		Category:    "Plantio",
		Name:        "Plantas por hectare",
		Description: "Estande pelo espaçamento entre linhas e plantas",
		Tags:        []string{"plantio", "estande"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("entre_linhas", num("Espaçamento entre linhas", "m", true, "")),
				named("entre_plantas", num("Espaçamento entre plantas", "m", true, "")),
			},
			Results: []calculation.Result{
				{Name: "Plantas", Expression: "10000 / (entre_linhas * entre_plantas)", Unit: "plantas/ha"},
				{Name: "Plantas por metro", Expression: "1 / entre_plantas", Unit: "plantas/m"},
			},
		},
	},
	{
		Category:    "Colheita",
		Name:        "Estimativa de produção de café",
		Description: "Amostragem de frutos por planta",
		Tags:        []string{"cafe", "legado"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("plantas", num("Plantas por hectare", "plantas/ha", true, "")),
				named("peso", num("Frutos por planta", "kg", true, "")),
			},
			Expression:        "plantas * peso",
			ResultName:        "Produção",
			ResultUnit:        "kg/ha",
			AdditionalResults: []calculation.AdditionalResult{{Key: "coleta50", Unit: "sc/ha"}},
		},
	},
	{
		Category:    "Colheita",
		Name:        "Produtividade de soja",
		Description: "Estimativa pelo número de vagens e peso de mil grãos",
		Tags:        []string{"soja"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("plantas_m", num("Plantas por metro", "plantas/m", true, "")),
				named("espacamento", num("Espaçamento", "m", true, "0.5")),
				named("vagens", num("Vagens por planta", "", true, "")),
				named("graos", num("Grãos por vagem", "", false, "2.5")),
				named("pmg", num("Peso de mil grãos", "g", false, "150")),
			},
			Results: []calculation.Result{
				{Name: "Produtividade", Expression: "plantas_m / espacamento * 10000 * vagens * graos * pmg / 1000 / 1000", Unit: "kg/ha"},
				{Name: "Sacas", Expression: "round(plantas_m / espacamento * 10000 * vagens * graos * pmg / 1000 / 1000 / 60)", Unit: "sc/ha"},
			},
		},
	},
	{
		Category:    "Pulverização",
		Name:        "Volume de calda",
		Description: "Volume de calda e produto por tanque",
		Tags:        []string{"pulverizacao"},
		Definition: calculation.Definition{
			Parameters: []calculation.Parameter{
				named("vazao", num("Vazão", "L/ha", true, "150")),
				named("tanque", num("Capacidade do tanque", "L", true, "2000")),
				named("dose", num("Dose do produto", "L/ha", true, "")),
				{
					Name: "bico", Label: "Tipo de bico", Type: calculation.ParamSelect, Default: "1",
					Options: []calculation.Option{
						{Label: "Leque", Value: "1"},
						{Label: "Cone", Value: "1.15"},
					},
				},
			},
			Results: []calculation.Result{
				{Name: "Área por tanque", Expression: "tanque / (vazao * bico)", Unit: "ha"},
				{Name: "Produto por tanque", Expression: "tanque / (vazao * bico) * dose", Unit: "L"},
			},
		},
	},
}
