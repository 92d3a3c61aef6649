package lessons

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/roach88/snipcheck/internal/snippet"
)

// dividir rejects non-numeric arguments with a TypeError and a zero
// divisor with a RangeError.
func dividir(a, b any) (float64, error) {
	x, okA := a.(float64)
	y, okB := b.(float64)
	if !okA || !okB {
		return 0, snippet.TypeError("Os argumentos têm de ser números.")
	}
	if y == 0 {
		return 0, snippet.RangeError("Divisão por zero não é permitida.")
	}
	return x / y, nil
}

func notaInvalida(nota float64) error {
	return snippet.NewError("NotaInvalidaError", fmt.Sprintf("Nota inválida: %s", snippet.Format(nota)))
}

func classificar(nota float64) (string, error) {
	if nota < 0 || nota > 20 {
		return "", notaInvalida(nota)
	}
	if nota >= 10 {
		return "Aprovado", nil
	}
	return "Reprovado", nil
}

type pessoa struct {
	nome  string
	idade int
}

func (p *pessoa) setIdade(v int) error {
	if v < 0 || v > 130 {
		return snippet.RangeError("Idade inválida")
	}
	p.idade = v
	return nil
}

func (p *pessoa) apresentar() string {
	return fmt.Sprintf("Olá, sou %s e tenho %d.", p.nome, p.idade)
}

type aluno struct {
	pessoa
	turma string
}

func (a *aluno) apresentar() string {
	return a.pessoa.apresentar() + " Estou na turma " + a.turma + "."
}

type avaliacao struct {
	nome string
	nota float64
}

func basics() []snippet.Snippet {
	return []snippet.Snippet{
		{
			ID:    "ola-mundo",
			Title: "Input/output básico",
			Body: func(env *snippet.Env) error {
				env.Log("Olá, mundo!")
				return nil
			},
			Expected: expect(out("Olá, mundo!")),
			Strict:   true,
		},
		{
			ID:    "arith-sum",
			Title: "Operadores aritméticos",
			Body: func(env *snippet.Env) error {
				env.Log(5 + 2)
				return nil
			},
			Expected: expect(out("7")),
			Strict:   true,
		},
		{
			ID:    "arith-ops",
			Title: "Resto e potência",
			Body: func(env *snippet.Env) error {
				env.Log(5 % 2)
				env.Log(math.Pow(2, 3))
				env.Log(1.0 / 3)
				return nil
			},
			Expected: expect(out("1"), out("8"), snippet.ExpectedOutput{Channel: snippet.Stdout, Pattern: `0\.3+\d*`}),
		},
		{
			ID:    "strings",
			Title: "Métodos de strings",
			Body: func(env *snippet.Env) error {
				s := "   JavaScript   "
				env.Log(len(s))
				env.Log(strings.TrimSpace(s))
				env.Log(strings.Contains("abc", "b"))
				env.Log(strings.Index("banana", "na"))
				env.Log("banana"[1:3])
				env.Log(strings.Replace("hello world", "world", "mundo", 1))
				return nil
			},
			Expected: expect(out("16"), out("JavaScript"), out("true"), out("2"), out("an"), out("hello mundo")),
			Strict:   true,
		},
		{
			ID:    "valores-por-defeito",
			Title: "|| versus ?? e encadeamento opcional",
			Body: func(env *snippet.Env) error {
				entrada := 0
				ou := entrada
				if ou == 0 {
					ou = 100
				}
				env.Log(ou)

				var talvez *int = &entrada
				nulo := 100
				if talvez != nil {
					nulo = *talvez
				}
				env.Log(nulo)

				type encarregado struct{ telefone string }
				var enc *encarregado
				if enc == nil {
					env.Log(nil)
				} else {
					env.Log(enc.telefone)
				}
				return nil
			},
			Expected: expect(out("100"), out("0"), out("null")),
			Strict:   true,
		},
		{
			ID:    "condicionais",
			Title: "if/else e switch",
			Body: func(env *snippet.Env) error {
				nota := 14
				switch {
				case nota >= 18:
					env.Log("Excelente")
				case nota >= 10:
					env.Log("Aprovado")
				default:
					env.Log("Reprovado")
				}

				dia := 2
				switch dia {
				case 1:
					env.Log("Segunda")
				case 2:
					env.Log("Terça")
				default:
					env.Log("Outro dia")
				}
				return nil
			},
			Expected: expect(out("Aprovado"), out("Terça")),
			Strict:   true,
		},
		{
			ID:    "div-ok",
			Title: "try/catch sem erro",
			Body: func(env *snippet.Env) error {
				resultado, err := dividir(10.0, 2.0)
				if err != nil {
					env.Error("Ocorreu um erro:", err)
					return nil
				}
				env.Log("Resultado:", resultado)
				return nil
			},
			Expected: expect(out("Resultado: 5")),
			Strict:   true,
		},
		{
			ID:    "bad-div",
			Title: "Erro não apanhado",
			Body: func(env *snippet.Env) error {
				resultado, err := dividir(10.0, 0.0)
				if err != nil {
					return err
				}
				env.Log("Resultado:", resultado)
				return nil
			},
			Expected: expect(thrown(snippet.KindRangeError, "Divisão por zero não é permitida.")),
			Strict:   true,
		},
		{
			ID:    "type-guard",
			Title: "TypeError apanhado",
			Body: func(env *snippet.Env) error {
				if _, err := dividir("10", 2.0); err != nil {
					env.Error("Ocorreu um erro:", err)
				}
				return nil
			},
			Expected: expect(errOut("Ocorreu um erro: Os argumentos têm de ser números.")),
			Strict:   true,
		},
		{
			ID:    "classificar",
			Title: "Erro personalizado apanhado",
			Body: func(env *snippet.Env) error {
				for _, nota := range []float64{14, 42} {
					c, err := classificar(nota)
					var te *snippet.ThrownError
					switch {
					case err == nil:
						env.Log(c)
					case errors.As(err, &te) && te.Name == "NotaInvalidaError":
						env.Error("Erro de nota:", err)
					default:
						env.Error("Erro desconhecido:", err)
					}
				}
				return nil
			},
			Expected: expect(out("Aprovado"), errOut("Erro de nota: Nota inválida: 42")),
			Strict:   true,
		},
		{
			ID:    "nota-invalida",
			Title: "Erro personalizado não apanhado",
			Body: func(env *snippet.Env) error {
				_, err := classificar(42)
				return err
			},
			Expected: expect(snippet.ExpectedOutput{
				Channel: snippet.ErrorChannel,
				Kind:    snippet.KindCustom,
				Pattern: `Nota inválida: \d+`,
			}),
			Strict: true,
		},
		{
			ID:    "funcoes",
			Title: "Parâmetros por defeito, rest e desestruturação",
			Body: func(env *snippet.Env) error {
				saudacao := func(nome ...string) string {
					if len(nome) == 0 {
						return "Olá, aluno!"
					}
					return "Olá, " + nome[0] + "!"
				}
				somaTudo := func(nums ...int) int {
					acc := 0
					for _, n := range nums {
						acc += n
					}
					return acc
				}
				imprimirAluno := func(a avaliacao) {
					env.Logf("%s tem %v", a.nome, a.nota)
				}

				env.Log(saudacao())
				env.Log(saudacao("Rita"))
				env.Log(somaTudo(1, 2, 3, 4))
				imprimirAluno(avaliacao{nome: "Ana", nota: 18})
				return nil
			},
			Expected: expect(out("Olá, aluno!"), out("Olá, Rita!"), out("10"), out("Ana tem 18")),
			Strict:   true,
		},
		{
			ID:    "closures",
			Title: "Closures",
			Body: func(env *snippet.Env) error {
				criarContador := func(inicial int) func() int {
					valor := inicial
					return func() int {
						valor++
						return valor
					}
				}
				proximo := criarContador(10)
				env.Log(proximo())
				env.Log(proximo())
				return nil
			},
			Expected: expect(out("11"), out("12")),
			Strict:   true,
		},
		{
			ID:    "arrays",
			Title: "map, filter, reduce, find, some, every, sort",
			Body: func(env *snippet.Env) error {
				alunos := []avaliacao{{"Ana", 17}, {"Bruno", 9}, {"Carla", 14}}

				nomes := make([]string, len(alunos))
				for i, al := range alunos {
					nomes[i] = al.nome
				}
				env.Log(nomes)

				soma := 0.0
				for _, al := range alunos {
					soma += al.nota
				}
				env.Log(soma, soma/float64(len(alunos)))

				idx := -1
				for i, al := range alunos {
					if al.nota < 10 {
						idx = i
						break
					}
				}
				env.Log(alunos[idx].nome, idx)

				algum, todos := false, true
				for _, al := range alunos {
					algum = algum || al.nota >= 18
					todos = todos && al.nota >= 10
				}
				env.Log(algum)
				env.Log(todos)

				porNota := append([]avaliacao(nil), alunos...)
				sort.SliceStable(porNota, func(i, j int) bool { return porNota[i].nota < porNota[j].nota })
				ordem := make([]string, len(porNota))
				for i, al := range porNota {
					ordem[i] = al.nome
				}
				env.Log(ordem)
				env.Log(alunos[0].nome)
				return nil
			},
			Expected: expect(
				out("[Ana, Bruno, Carla]"),
				out("40 13.333333333333334"),
				out("Bruno 1"),
				out("false"),
				out("false"),
				out("[Bruno, Carla, Ana]"),
				out("Ana"),
			),
			Strict: true,
		},
		{
			ID:    "classes",
			Title: "Classes, herança e setters",
			Body: func(env *snippet.Env) error {
				ana := &pessoa{nome: "Ana", idade: 20}
				carla := &aluno{pessoa: pessoa{nome: "Carla", idade: 19}, turma: "12ºIG"}
				env.Log(ana.apresentar())
				env.Log(carla.apresentar())

				if err := ana.setIdade(200); err != nil {
					env.Error(err)
				}
				return nil
			},
			Expected: expect(
				out("Olá, sou Ana e tenho 20."),
				out("Olá, sou Carla e tenho 19. Estou na turma 12ºIG."),
				errOut("Idade inválida"),
			),
			Strict: true,
		},
		{
			ID:    "idade-invalida",
			Title: "RangeError num setter",
			Body: func(env *snippet.Env) error {
				bruno := &pessoa{nome: "Bruno", idade: 18}
				if err := bruno.setIdade(-1); err != nil {
					return err
				}
				env.Log(bruno.apresentar())
				return nil
			},
			Expected: expect(thrown(snippet.KindRangeError, "Idade inválida")),
			Strict:   true,
		},
	}
}
