package eventloop

// Settlement describes one input of AllSettled.
type Settlement struct {
	Status string // "fulfilled" or "rejected"
	Value  any
	Reason error
}

// All fulfills with every input's value, in input order, or rejects with
// the first rejection. Non-promise inputs count as already fulfilled.
func (l *Loop) All(inputs ...any) *Promise {
	return l.NewPromise(func(resolve func(any), reject func(error)) {
		if len(inputs) == 0 {
			resolve([]any{})
			return
		}

		results := make([]any, len(inputs))
		remaining := len(inputs)
		for i, in := range inputs {
			i := i
			l.Resolve(in).Then(
				func(v any) (any, error) {
					results[i] = v
					remaining--
					if remaining == 0 {
						resolve(results)
					}
					return nil, nil
				},
				func(reason error) (any, error) {
					reject(reason)
					return nil, nil
				},
			)
		}
	})
}

// AllSettled fulfills once every input settled, with one Settlement per
// input. It never rejects.
func (l *Loop) AllSettled(inputs ...any) *Promise {
	return l.NewPromise(func(resolve func(any), _ func(error)) {
		if len(inputs) == 0 {
			resolve([]Settlement{})
			return
		}

		results := make([]Settlement, len(inputs))
		remaining := len(inputs)
		done := func() {
			remaining--
			if remaining == 0 {
				resolve(results)
			}
		}
		for i, in := range inputs {
			i := i
			l.Resolve(in).Then(
				func(v any) (any, error) {
					results[i] = Settlement{Status: Fulfilled.String(), Value: v}
					done()
					return nil, nil
				},
				func(reason error) (any, error) {
					results[i] = Settlement{Status: Rejected.String(), Reason: reason}
					done()
					return nil, nil
				},
			)
		}
	})
}

// Race settles like the first input to settle. With no inputs it stays
// pending forever.
func (l *Loop) Race(inputs ...any) *Promise {
	return l.NewPromise(func(resolve func(any), reject func(error)) {
		for _, in := range inputs {
			l.Resolve(in).Then(
				func(v any) (any, error) {
					resolve(v)
					return nil, nil
				},
				func(reason error) (any, error) {
					reject(reason)
					return nil, nil
				},
			)
		}
	})
}

// Any fulfills with the first fulfilled input. If every input rejects it
// rejects with an AggregateError holding the reasons in input order.
func (l *Loop) Any(inputs ...any) *Promise {
	return l.NewPromise(func(resolve func(any), reject func(error)) {
		if len(inputs) == 0 {
			reject(&AggregateError{})
			return
		}

		reasons := make([]error, len(inputs))
		remaining := len(inputs)
		for i, in := range inputs {
			i := i
			l.Resolve(in).Then(
				func(v any) (any, error) {
					resolve(v)
					return nil, nil
				},
				func(reason error) (any, error) {
					reasons[i] = reason
					remaining--
					if remaining == 0 {
						reject(&AggregateError{Errors: reasons})
					}
					return nil, nil
				},
			)
		}
	})
}
