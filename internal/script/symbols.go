package script

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/roach88/snipcheck/internal/eventloop"
	"github.com/roach88/snipcheck/internal/snippet"
)

// LessonPath is the import path interpreted sources use for the body API.
const LessonPath = "snipcheck/lesson"

// Symbols exports the body API to interpreted sources as package "lesson".
var Symbols = interp.Exports{
	LessonPath + "/lesson": {
		// types
		"Env":         reflect.ValueOf((*snippet.Env)(nil)),
		"Promise":     reflect.ValueOf((*eventloop.Promise)(nil)),
		"Settlement":  reflect.ValueOf((*eventloop.Settlement)(nil)),
		"TimerID":     reflect.ValueOf((*eventloop.TimerID)(nil)),
		"State":       reflect.ValueOf((*eventloop.State)(nil)),
		"ThrownError": reflect.ValueOf((*snippet.ThrownError)(nil)),

		// constants
		"Pending":   reflect.ValueOf(eventloop.Pending),
		"Fulfilled": reflect.ValueOf(eventloop.Fulfilled),
		"Rejected":  reflect.ValueOf(eventloop.Rejected),

		// functions
		"TypeError":  reflect.ValueOf(snippet.TypeError),
		"RangeError": reflect.ValueOf(snippet.RangeError),
		"NewError":   reflect.ValueOf(snippet.NewError),
		"Format":     reflect.ValueOf(snippet.Format),
	},
}
