package services

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"drone-delivery-service/internal/domain"

	"go.uber.org/zap"
)

// Reported when route optimization is requested with fewer than two
// destinations.
var ErrTooFewDestinations = errors.New("at least 2 destinations are required")

// Tunables for the genetic route search. Zero values fall back to the
// planner defaults.
type OptimizerConfig struct {
	PopulationSize  int
	Generations     int
	MutationRate    float64
	ElitismRate     float64
	TournamentSize  int
	CrossoverRate   float64
	StagnationLimit int
	RefreshFraction float64
	Runs            int
	Seed            uint64
}

func (c OptimizerConfig) withDefaults() OptimizerConfig {
	if c.PopulationSize <= 0 {
		c.PopulationSize = 100
	}
	if c.Generations <= 0 {
		c.Generations = 100
	}
	if c.MutationRate <= 0 {
		c.MutationRate = 0.05
	}
	if c.ElitismRate <= 0 {
		c.ElitismRate = 0.10
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = 5
	}
	if c.CrossoverRate <= 0 {
		c.CrossoverRate = 0.9
	}
	if c.StagnationLimit <= 0 {
		c.StagnationLimit = 15
	}
	if c.RefreshFraction <= 0 {
		c.RefreshFraction = 0.30
	}
	if c.Runs <= 0 {
		c.Runs = 1
	}
	return c
}

func newRng(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed+1))
}

type individual struct {
	path    *domain.Path
	fitness float64
}

func (in *individual) clone() *individual {
	return &individual{path: in.path.Clone(), fitness: in.fitness}
}

// Genetic search for a short visiting order over a set of destinations.
//
// Candidate orderings evolve under tournament selection, order crossover and
// a decaying mutation rate. Fitness is the origin-aware distance: the leg
// from the origin to the first stop, the open walk across the stops, and the
// leg from the last stop home. The search runs a fixed generation budget and
// keeps the best ordering ever seen, which never gets worse between
// generations.
type RouteOptimizer struct {
	origin domain.Waypoint
	stops  []domain.Waypoint
	cfg    OptimizerConfig
	rng    *rand.Rand
	logger *zap.Logger

	population []*individual
	best       *individual
}

func NewRouteOptimizer(origin domain.Waypoint, destinations []domain.Waypoint, cfg OptimizerConfig, logger *zap.Logger) (*RouteOptimizer, error) {
	if len(destinations) < 2 {
		return nil, ErrTooFewDestinations
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &RouteOptimizer{
		origin: origin,
		stops:  append([]domain.Waypoint(nil), destinations...),
		cfg:    cfg.withDefaults(),
		rng:    newRng(cfg.Seed),
		logger: logger,
	}
	o.initializePopulation()
	return o, nil
}

// Origin-aware cost of a candidate ordering.
func (o *RouteOptimizer) CompleteDistance(p *domain.Path) float64 {
	if p.Len() == 0 {
		return 0
	}
	return o.origin.DistanceTo(p.At(0)) + p.OpenLength() + p.At(p.Len()-1).DistanceTo(o.origin)
}

// Run the full generation budget and return the best ordering found.
// Cancellation is checked between generations; a cancelled search still
// returns the best ordering seen so far alongside the context error.
func (o *RouteOptimizer) Optimize(ctx context.Context) (*domain.Path, error) {
	stagnant := 0
	previousBest := math.Inf(1)

	for gen := 0; gen < o.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return o.best.path.Clone(), err
		}

		o.runGeneration(gen)

		current := o.population[0]
		if current.fitness < o.best.fitness {
			o.best = current.clone()
		}

		if current.fitness < previousBest {
			previousBest = current.fitness
			stagnant = 0
		} else {
			stagnant++
		}
		if stagnant >= o.cfg.StagnationLimit {
			o.injectDiversity()
			stagnant = 0
		}

		o.logger.Debug("generation finished",
			zap.Int("generation", gen+1),
			zap.Float64("best_distance", current.fitness),
			zap.Float64("best_ever_distance", o.best.fitness),
		)
	}

	return o.best.path.Clone(), nil
}

// Best ordering seen so far, with its fitness.
func (o *RouteOptimizer) Best() (*domain.Path, float64) {
	return o.best.path.Clone(), o.best.fitness
}

func (o *RouteOptimizer) initializePopulation() {
	pop := make([]*individual, 0, o.cfg.PopulationSize)
	pop = append(pop, o.newIndividual(o.greedyStops()))

	reversed := append([]domain.Waypoint(nil), o.stops...)
	slices.Reverse(reversed)
	pop = append(pop, o.newIndividual(reversed))

	for len(pop) < o.cfg.PopulationSize {
		pop = append(pop, o.newIndividual(o.shuffledStops()))
	}

	sortByFitness(pop)
	o.population = pop
	o.best = pop[0].clone()
}

func (o *RouteOptimizer) newIndividual(stops []domain.Waypoint) *individual {
	p := domain.NewPath(stops)
	return &individual{path: p, fitness: o.CompleteDistance(p)}
}

// Nearest-neighbor ordering from a random start waypoint.
// Ties keep the earliest remaining stop for deterministic ordering.
func (o *RouteOptimizer) greedyStops() []domain.Waypoint {
	remaining := append([]domain.Waypoint(nil), o.stops...)
	route := make([]domain.Waypoint, 0, len(remaining))

	i := o.rng.IntN(len(remaining))
	current := remaining[i]
	route = append(route, current)
	remaining = append(remaining[:i], remaining[i+1:]...)

	for len(remaining) > 0 {
		closest := 0
		for j := 1; j < len(remaining); j++ {
			if current.DistanceTo(remaining[j]) < current.DistanceTo(remaining[closest]) {
				closest = j
			}
		}
		current = remaining[closest]
		route = append(route, current)
		remaining = append(remaining[:closest], remaining[closest+1:]...)
	}
	return route
}

func (o *RouteOptimizer) shuffledStops() []domain.Waypoint {
	s := append([]domain.Waypoint(nil), o.stops...)
	o.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
	return s
}

func (o *RouteOptimizer) runGeneration(gen int) {
	sortByFitness(o.population)

	elites := int(float64(o.cfg.PopulationSize) * o.cfg.ElitismRate)
	elites = min(elites, len(o.population))
	next := make([]*individual, 0, o.cfg.PopulationSize)
	next = append(next, o.population[:elites]...)

	for len(next) < o.cfg.PopulationSize {
		parent1 := o.selectParent()
		parent2 := o.selectParent()

		var child *individual
		if o.rng.Float64() < o.cfg.CrossoverRate {
			child = o.crossover(parent1, parent2)
		} else {
			child = parent1.clone()
		}

		if o.rng.Float64() < o.mutationRate(gen) {
			o.mutate(child)
		}
		next = append(next, child)
	}

	o.population = next
	sortByFitness(o.population)
}

// Mutation probability decays linearly to zero across the generation budget.
func (o *RouteOptimizer) mutationRate(gen int) float64 {
	return o.cfg.MutationRate * (1 - float64(gen)/float64(o.cfg.Generations))
}

// Tournament selection over a sample drawn without replacement.
func (o *RouteOptimizer) selectParent() *individual {
	k := min(o.cfg.TournamentSize, len(o.population))
	var best *individual
	for _, idx := range o.rng.Perm(len(o.population))[:k] {
		candidate := o.population[idx]
		if best == nil || candidate.fitness < best.fitness {
			best = candidate
		}
	}
	return best
}

// Order crossover: a random slice of parent 1 keeps its positions, the open
// positions fill from parent 2 in order, skipping stops the slice already
// covers. Cut points may coincide or span the whole route; the child is
// always a permutation of the input.
func (o *RouteOptimizer) crossover(parent1, parent2 *individual) *individual {
	size := len(o.stops)
	a, b := o.rng.IntN(size+1), o.rng.IntN(size+1)
	if a > b {
		a, b = b, a
	}

	child := make([]domain.Waypoint, size)
	filled := make([]bool, size)
	taken := make(map[string]bool, size)

	p1 := parent1.path
	for i := a; i < b; i++ {
		child[i] = p1.At(i)
		filled[i] = true
		taken[child[i].Name] = true
	}

	p2 := parent2.path
	pos := 0
	for i := 0; i < p2.Len(); i++ {
		w := p2.At(i)
		if taken[w.Name] {
			continue
		}
		for pos < size && filled[pos] {
			pos++
		}
		if pos >= size {
			break
		}
		child[pos] = w
		filled[pos] = true
		pos++
	}

	return o.newIndividual(child)
}

// Apply one of three operators: swap two stops, reverse a segment, or move a
// stop to another index. The path refreshes its cached length; the cached
// fitness refreshes here.
func (o *RouteOptimizer) mutate(in *individual) {
	n := in.path.Len()
	if n < 2 {
		return
	}

	switch o.rng.IntN(3) {
	case 0:
		i, j := o.sampleTwo(n)
		in.path.SwapStops(i, j)
	case 1:
		i, j := o.sampleTwo(n)
		in.path.ReverseSegment(i, j)
	case 2:
		in.path.MoveStop(o.rng.IntN(n), o.rng.IntN(n))
	}
	in.fitness = o.CompleteDistance(in.path)
}

// Two distinct indexes in [0, n).
func (o *RouteOptimizer) sampleTwo(n int) (int, int) {
	i := o.rng.IntN(n)
	j := o.rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

// Replace the worst slice of the population with fresh shuffles, then turn
// half of that slice into 2-opt improvements of randomly chosen individuals.
func (o *RouteOptimizer) injectDiversity() {
	count := int(float64(o.cfg.PopulationSize) * o.cfg.RefreshFraction)
	count = min(count, len(o.population))
	if count == 0 {
		return
	}
	start := len(o.population) - count

	for i := start; i < len(o.population); i++ {
		o.population[i] = o.newIndividual(o.shuffledStops())
	}
	for i := start; i < start+count/2 && i < len(o.population); i++ {
		seed := o.population[o.rng.IntN(len(o.population))]
		o.population[i] = o.twoOptImprove(seed)
	}

	o.logger.Debug("population refreshed after stagnation", zap.Int("replaced", count))
}

// Full 2-opt local search: keep taking segment reversals that shorten the
// origin-aware distance until none does.
func (o *RouteOptimizer) twoOptImprove(in *individual) *individual {
	best := in.clone()
	improved := true
	for improved {
		improved = false
		for i := 0; i < best.path.Len()-1; i++ {
			for j := i + 1; j < best.path.Len(); j++ {
				candidate := best.path.Clone()
				candidate.ReverseSegment(i, j)
				if d := o.CompleteDistance(candidate); d < best.fitness {
					best = &individual{path: candidate, fitness: d}
					improved = true
				}
			}
		}
	}
	return best
}

func sortByFitness(pop []*individual) {
	sort.Slice(pop, func(i, j int) bool { return pop[i].fitness < pop[j].fitness })
}
