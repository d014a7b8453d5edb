// Package observable provides containers that announce structural changes.
//
// Map and List wrap a Go map and slice. Every mutating operation emits exactly
// one event describing its net effect to the container's listeners:
//
//	people := observable.NewList[*Person]()
//	people.Observe(func(e observable.ListEvent[*Person]) {
//	    fmt.Println(e.Type, e.Index, e.Count)
//	})
//	people.Append(alice) // ElementsAdded index=0 count=1
//	people.Clear()       // ElementsRemoved index=0 count=1, Removed=[alice]
//
// Operations that change nothing, such as removing an absent map key or
// clearing an empty list, emit nothing.
//
// A Map may carry a default value that Get returns for absent keys. Serving the
// default is a read and never emits an event.
//
// Listener registration uses the same copy-on-write discipline as
// notify.Signal. Container operations are safe for concurrent use, but the
// order of events produced by concurrent mutations is unspecified.
package observable
