// Package violation describes, reports and records breaches of the
// ownership and borrowing discipline.
//
// A Report captures one violation: its Kind, the operation that triggered
// it, the handle and group involved, the owner and mutator at the moment
// of the breach, the live aliases (with their creation sites), and the
// stack of the offending call. Reports are rendered in a framed text
// layout:
//
//	==================
//	LIFETIME VIOLATION: owner released while aliases remain
//	Drop on cell#1 (group#1):
//	  main.main()
//	      /path/to/main.go:12
//
//	Owner: cell#1  Mutator: none
//	Live aliases (1):
//	  cell#2 created at:
//	    main.main()
//	        /path/to/main.go:9
//	==================
//
// # Reporter
//
// A Reporter receives every violation raised by the cell runtime. It
// counts them (Prometheus), logs them (zerolog), keeps a bounded history
// for dumping (msgpack), suppresses duplicates, and applies the fatal
// policy: under PolicyPanic a fatal report panics after it has been
// logged and written; under PolicyReport it is only logged and recorded.
//
// # Thread Safety
//
// Reporter methods are safe for concurrent use. Reports are immutable
// after construction.
package violation
