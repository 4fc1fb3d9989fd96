package tasks

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

type frame struct {
	name string
	next int // index of the next dependency to visit
}

// Order returns the batch in dependency order: every task follows the tasks
// it depends on. Roots are visited in input order and dependencies in the
// order they are listed, so independent tasks keep their input order.
//
// When several specs share a name the last one wins, placed where the name
// first appears. Dependencies naming no task in the batch are skipped.
// A cycle, including a task depending on itself, yields a *CycleError.
func Order(specs []Spec) ([]Spec, error) {
	lookup := make(map[string]Spec, len(specs))
	for _, s := range specs {
		lookup[s.Name] = s
	}

	state := make(map[string]visitState, len(lookup))
	ordered := make([]Spec, 0, len(lookup))

	for _, root := range specs {
		if state[root.Name] != unvisited {
			continue
		}

		state[root.Name] = inProgress
		stack := []frame{{name: root.Name}}

		for len(stack) > 0 {
			top := len(stack) - 1
			deps := lookup[stack[top].name].DependsOn

			if stack[top].next < len(deps) {
				dep := deps[stack[top].next]
				stack[top].next++

				if _, ok := lookup[dep]; !ok {
					continue
				}
				switch state[dep] {
				case done:
					continue
				case inProgress:
					return nil, &CycleError{Cycle: cyclePath(stack, dep)}
				}

				state[dep] = inProgress
				stack = append(stack, frame{name: dep})
				continue
			}

			name := stack[top].name
			state[name] = done
			ordered = append(ordered, lookup[name])
			stack = stack[:top]
		}
	}

	return ordered, nil
}

// cyclePath reconstructs the cycle closed by an edge from the top of the
// stack back to dep.
func cyclePath(stack []frame, dep string) []string {
	start := 0
	for i, f := range stack {
		if f.name == dep {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.name)
	}
	return append(path, dep)
}
