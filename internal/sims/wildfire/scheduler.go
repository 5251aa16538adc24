package wildfire

import "wildfire/pkg/core"

// Scheduler activates every tree and then every firefighter once per tick,
// each population in a fresh random order. Firefighters stay idle for the
// first delay ticks.
type Scheduler struct {
	trees        []TreeID
	firefighters []FirefighterID
	delay        int
	tick         int
}

// NewScheduler returns a scheduler at tick 0.
func NewScheduler(delay int) *Scheduler {
	return &Scheduler{delay: max(delay, 0)}
}

// Reset clears both populations and rewinds the tick counter.
func (s *Scheduler) Reset(delay int) {
	s.trees = s.trees[:0]
	s.firefighters = s.firefighters[:0]
	s.delay = max(delay, 0)
	s.tick = 0
}

// AddTree enrolls a tree.
func (s *Scheduler) AddTree(id TreeID) { s.trees = append(s.trees, id) }

// AddFirefighter enrolls a firefighter.
func (s *Scheduler) AddFirefighter(id FirefighterID) { s.firefighters = append(s.firefighters, id) }

// Tick returns the number of completed ticks, which is also the 0-based index
// of the tick being executed during Step.
func (s *Scheduler) Tick() int { return s.tick }

// FirefightersActive reports whether firefighters act on the current tick.
func (s *Scheduler) FirefightersActive() bool { return s.tick >= s.delay }

// Step runs one tick: all trees, then (past the response delay) all
// firefighters, then advances the counter.
func (s *Scheduler) Step(rng *core.RNG, tree func(TreeID), firefighter func(FirefighterID)) {
	rng.Shuffle(len(s.trees), func(i, j int) { s.trees[i], s.trees[j] = s.trees[j], s.trees[i] })
	for _, id := range s.trees {
		tree(id)
	}
	if s.FirefightersActive() {
		rng.Shuffle(len(s.firefighters), func(i, j int) {
			s.firefighters[i], s.firefighters[j] = s.firefighters[j], s.firefighters[i]
		})
		for _, id := range s.firefighters {
			firefighter(id)
		}
	}
	s.tick++
}
