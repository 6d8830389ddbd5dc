package testutils

import "fmt"

// ScriptedRoller implements dice.Roller with a predetermined sequence of
// results, so combat tests are deterministic. Each Roll consumes the next
// scripted value regardless of the requested die size.
type ScriptedRoller struct {
	results []int
	next    int
}

// NewScriptedRoller creates a roller that returns the given results in order
func NewScriptedRoller(results ...int) *ScriptedRoller {
	return &ScriptedRoller{results: results}
}

// Roll returns the next scripted result
func (r *ScriptedRoller) Roll(_ int) (int, error) {
	if r.next >= len(r.results) {
		return 0, fmt.Errorf("scripted roller exhausted after %d rolls", len(r.results))
	}

	result := r.results[r.next]
	r.next++
	return result, nil
}

// RollN returns the next count scripted results
func (r *ScriptedRoller) RollN(count, size int) ([]int, error) {
	results := make([]int, 0, count)
	for i := 0; i < count; i++ {
		result, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Remaining reports how many scripted results are left unconsumed
func (r *ScriptedRoller) Remaining() int {
	return len(r.results) - r.next
}

// FixedRoller implements dice.Roller by returning the same value for every
// die rolled.
type FixedRoller struct {
	Result int
}

// Roll returns the fixed result
func (r *FixedRoller) Roll(_ int) (int, error) {
	return r.Result, nil
}

// RollN returns count copies of the fixed result
func (r *FixedRoller) RollN(count, _ int) ([]int, error) {
	results := make([]int, count)
	for i := range results {
		results[i] = r.Result
	}
	return results, nil
}
