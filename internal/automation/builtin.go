package automation

import (
	"fmt"
	"sort"
)

var builtins = map[string]string{
	"drop": `
name: drop
description: a sphere falls onto a sphere pinned to the world
duration: 3
track: s2
setup:
  - {op: create, name: s1, kind: sphere, init: {radius: [1]}}
  - {op: join, name: pin, kind: fixed, a: s1}
  - {op: create, name: s2, kind: sphere, init: {position: [0, 0, 5], radius: [0.5]}}
`,
	"pendulum": `
name: pendulum
description: a bob swings on a hinge anchored at the origin
duration: 10
track: bob
setup:
  - {op: create, name: bob, kind: sphere, init: {position: [1, 0, 0], radius: [0.1]}}
  - {op: join, name: hinge, kind: hinge, a: bob, anchor: [0, 0, 0], axis: [0, 1, 0]}
`,
	"grasp": `
name: grasp
description: the cursor lifts a box off a pinned floor and drops it
duration: 4
start: true
track: box
setup:
  - {op: create, name: cursor, kind: cursor}
  - {op: create, name: floor, kind: prism, init: {position: [0, 0, -0.1], size: [4, 4, 0.2]}}
  - {op: join, name: pin, kind: fixed, a: floor}
  - {op: create, name: box, kind: prism, init: {position: [0, 0, 0.1], size: [0.2, 0.2, 0.2]}}
events:
  - {at: 0.5, op: grab, name: box}
  - {at: 0.6, op: probe, value: [0, 0, 0.5]}
  - {at: 2.5, op: release}
`,
}

// Builtin returns a fresh copy of a bundled scenario.
func Builtin(name string) (*Scenario, error) {
	src, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("automation: no builtin scenario %q", name)
	}
	return ParseScenario([]byte(src))
}

func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
