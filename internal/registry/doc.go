// Package registry loads snippet registries from YAML or CUE files.
//
// # File Format
//
//	name: basics
//	description: "Operators and errors"
//	timeout: 1s              # default for every snippet (optional)
//	snippets:
//	  - id: arith-sum
//	    strict: true
//	    expect:
//	      - stdout: "7"
//	    source: |
//	      func Run(env *lesson.Env) error {
//	          env.Log(5 + 2)
//	          return nil
//	      }
//	  - id: bad-div
//	    expect:
//	      - error: "Divisão por zero não é permitida."
//	        kind: RangeError
//	      - stderr: "Ocorreu um erro: .*"
//	        match: pattern
//	    source: ...
//
// Each expectation names exactly one channel (stdout, stderr or error).
// The same shape is accepted as CUE; CUE files are checked against a closed
// schema before decoding.
//
// Loading is all-or-nothing: every problem in the file, including source
// compile errors and duplicate IDs, is reported in one
// *snippet.RegistryError and nothing executes.
package registry
