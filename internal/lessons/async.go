package lessons

import (
	"errors"
	"strings"
	"time"

	"github.com/roach88/snipcheck/internal/eventloop"
	"github.com/roach88/snipcheck/internal/snippet"
)

// debounce returns a function that runs fn only once calls stop arriving
// for delay.
func debounce(env *snippet.Env, delay time.Duration, fn func(args ...any)) func(args ...any) {
	var t eventloop.TimerID
	return func(args ...any) {
		env.ClearTimer(t)
		t = env.SetTimeout(delay, func() error {
			fn(args...)
			return nil
		})
	}
}

// temporizador wraps an interval that can be restarted and stopped.
type temporizador struct {
	env *snippet.Env
	id  eventloop.TimerID
	on  bool
}

func (t *temporizador) start(every time.Duration, cb func()) {
	t.stop()
	t.id = t.env.SetInterval(every, func() error {
		cb()
		return nil
	})
	t.on = true
}

func (t *temporizador) stop() {
	if t.on {
		t.env.ClearTimer(t.id)
		t.on = false
	}
}

func async() []snippet.Snippet {
	return []snippet.Snippet{
		{
			ID:       "race",
			Title:    "Ordem do event loop",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				env.Log("A")
				env.SetTimeout(0, func() error {
					env.Log("B")
					return nil
				})
				env.Resolve(nil).Then(func(any) (any, error) {
					env.Log("C")
					return nil, nil
				}, nil)
				env.Log("D")
				return nil
			},
			Expected: expect(out("A"), out("D"), out("C"), out("B")),
			Strict:   true,
		},
		{
			ID:       "microtasks",
			Title:    "queueMicrotask antes de setTimeout",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				env.Log("sync")
				env.QueueMicrotask(func() error {
					env.Log("micro 1")
					return nil
				})
				env.SetTimeout(0, func() error {
					env.Log("timer")
					return nil
				})
				env.QueueMicrotask(func() error {
					env.Log("micro 2")
					return nil
				})
				return nil
			},
			Expected: expect(out("sync"), out("micro 1"), out("micro 2"), out("timer")),
			Strict:   true,
		},
		{
			ID:       "promise-chain",
			Title:    "esperar e encadeamento",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				env.Sleep(300*time.Millisecond, "Olá").
					Then(func(v any) (any, error) { return v.(string) + " mundo", nil }, nil).
					Then(func(v any) (any, error) { return strings.ToUpper(v.(string)), nil }, nil).
					Then(func(v any) (any, error) {
						env.Log(v)
						return nil, nil
					}, nil).
					Catch(func(err error) (any, error) {
						env.Error("Erro:", err)
						return nil, nil
					}).
					Finally(func() error {
						env.Log("limpo")
						return nil
					})
				return nil
			},
			Expected: expect(out("OLÁ MUNDO"), out("limpo")),
			Strict:   true,
		},
		{
			ID:       "promise-all",
			Title:    "Promise.all",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				p1 := env.Sleep(200*time.Millisecond, 1)
				p2 := env.Sleep(300*time.Millisecond, 2)
				env.All(p1, p2).Then(func(v any) (any, error) {
					env.Log("ambos concluídos:", v)
					env.Log(env.Now())
					return nil, nil
				}, nil)
				return nil
			},
			Expected: expect(out("ambos concluídos: [1, 2]"), out("300ms")),
			Strict:   true,
		},
		{
			ID:       "promise-all-soma",
			Title:    "Esperar em paralelo",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				a := env.Sleep(200*time.Millisecond, 10)
				b := env.Sleep(200*time.Millisecond, 20)
				env.All(a, b).
					Then(func(v any) (any, error) {
						rs := v.([]any)
						return rs[0].(int) + rs[1].(int), nil
					}, nil).
					Then(func(res any) (any, error) {
						env.Log(res)
						return nil, nil
					}, nil)
				return nil
			},
			Expected: expect(out("30")),
			Strict:   true,
		},
		{
			ID:       "promise-all-settled",
			Title:    "Promise.allSettled",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				p1 := env.Sleep(200*time.Millisecond, 1)
				p2 := env.NewPromise(func(_ func(any), reject func(error)) {
					env.SetTimeout(100*time.Millisecond, func() error {
						reject(snippet.NewError("Error", "falhou"))
						return nil
					})
				})
				env.AllSettled(p1, p2).Then(func(v any) (any, error) {
					for _, r := range v.([]eventloop.Settlement) {
						if r.Status == "fulfilled" {
							env.Log(r.Status, r.Value)
						} else {
							env.Log(r.Status, r.Reason)
						}
					}
					return nil, nil
				}, nil)
				return nil
			},
			Expected: expect(out("fulfilled 1"), out("rejected falhou")),
			Strict:   true,
		},
		{
			ID:       "promise-race",
			Title:    "Promise.race",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				env.Race(env.Sleep(200*time.Millisecond, "lento"), env.Sleep(100*time.Millisecond, "rápido")).
					Then(func(v any) (any, error) {
						env.Log(v)
						return nil, nil
					}, nil)
				return nil
			},
			Expected: expect(out("rápido")),
			Strict:   true,
		},
		{
			ID:       "promise-any",
			Title:    "Promise.any",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				env.Any(env.Reject(errors.New("a")), env.Sleep(50*time.Millisecond, "ok")).
					Then(func(v any) (any, error) {
						env.Log(v)
						return nil, nil
					}, nil)

				env.Any(env.Reject(errors.New("a")), env.Reject(errors.New("b"))).
					Catch(func(err error) (any, error) {
						env.Error("Todas falharam:", err)
						return nil, nil
					})
				return nil
			},
			Expected: expect(errOut("Todas falharam: all promises were rejected: [a; b]"), out("ok")),
			Strict:   true,
		},
		{
			ID:       "debounce",
			Title:    "Debounce",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				pesquisar := debounce(env, 300*time.Millisecond, func(args ...any) {
					env.Log("pesquisa:", args[0], "aos", env.Now())
				})
				for i, termo := range []string{"a", "ab", "abc"} {
					termo := termo
					env.SetTimeout(time.Duration(i)*100*time.Millisecond, func() error {
						pesquisar(termo)
						return nil
					})
				}
				return nil
			},
			Expected: expect(out("pesquisa: abc aos 500ms")),
			Strict:   true,
		},
		{
			ID:       "temporizador",
			Title:    "Composição com setInterval",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				t := &temporizador{env: env}
				seg := 0
				t.start(100*time.Millisecond, func() {
					seg++
					if seg == 3 {
						t.stop()
						env.Log("segundos:", seg)
					}
				})
				return nil
			},
			Expected: expect(out("segundos: 3")),
			Strict:   true,
		},
		{
			ID:       "unhandled-rejection",
			Title:    "Rejeição não tratada",
			Deferred: true,
			Body: func(env *snippet.Env) error {
				env.NewPromise(func(_ func(any), reject func(error)) {
					env.SetTimeout(10*time.Millisecond, func() error {
						reject(snippet.NewError("Error", "Falha na operação"))
						return nil
					})
				})
				env.Log("pedido enviado")
				return nil
			},
			Expected: expect(out("pedido enviado"), thrown(snippet.KindCustom, "Falha na operação")),
			Strict:   true,
		},
	}
}
