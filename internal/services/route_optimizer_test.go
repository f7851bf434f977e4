package services

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"drone-delivery-service/internal/domain"

	"go.uber.org/zap/zaptest"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testOrigin() domain.Waypoint {
	return domain.Waypoint{Name: "origin", X: 0, Y: 0}
}

func squareCorners() []domain.Waypoint {
	return []domain.Waypoint{
		{Name: "A", X: 10, Y: 0},
		{Name: "B", X: 10, Y: 10},
		{Name: "C", X: 0, Y: 10},
	}
}

func spreadStops() []domain.Waypoint {
	return []domain.Waypoint{
		{Name: "Alpha", X: 25, Y: 100},
		{Name: "Bravo", X: 30, Y: 10},
		{Name: "Charlie", X: 100, Y: 0},
		{Name: "Delta", X: 50, Y: 75},
		{Name: "Echo", X: 10, Y: 90},
		{Name: "Foxtrot", X: 80, Y: 20},
		{Name: "Golf", X: 40, Y: 60},
		{Name: "Hotel", X: 90, Y: 30},
	}
}

func sortedNames(p *domain.Path) []string {
	names := make([]string, 0, p.Len())
	for _, w := range p.Stops() {
		names = append(names, w.Name)
	}
	slices.Sort(names)
	return names
}

func TestNewRouteOptimizerRequiresTwoDestinations(t *testing.T) {
	_, err := NewRouteOptimizer(testOrigin(), []domain.Waypoint{{Name: "A", X: 1}}, OptimizerConfig{}, nil)
	if !errors.Is(err, ErrTooFewDestinations) {
		t.Fatalf("err = %v, want ErrTooFewDestinations", err)
	}
}

func TestCompleteDistance(t *testing.T) {
	stops := []domain.Waypoint{
		{Name: "A", X: 0, Y: 3},
		{Name: "B", X: 4, Y: 3},
		{Name: "C", X: 4, Y: 0},
	}
	o, err := NewRouteOptimizer(testOrigin(), stops, OptimizerConfig{Seed: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// origin->A (3) + A->B (4) + B->C (3) + C->origin (4)
	got := o.CompleteDistance(domain.NewPath(stops))
	if !almostEqual(got, 14) {
		t.Fatalf("complete distance = %v, want 14", got)
	}
}

func TestOptimizeFindsSquareTour(t *testing.T) {
	cfg := OptimizerConfig{PopulationSize: 30, Generations: 40, Seed: 1}
	o, err := NewRouteOptimizer(testOrigin(), squareCorners(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := o.Optimize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, dist := o.Best()
	if !almostEqual(dist, 40) {
		t.Fatalf("best distance = %v, want 40", dist)
	}
	// Both optimal tours of the square keep B in the middle.
	if path.At(1).Name != "B" {
		t.Fatalf("middle stop = %q, want B", path.At(1).Name)
	}
}

func TestOptimizeTwoDestinations(t *testing.T) {
	stops := []domain.Waypoint{
		{Name: "A", X: 3, Y: 0},
		{Name: "B", X: 3, Y: 4},
	}
	o, err := NewRouteOptimizer(testOrigin(), stops, OptimizerConfig{PopulationSize: 10, Generations: 5, Seed: 2}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := o.Optimize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path.Len() != 2 {
		t.Fatalf("path length = %d, want 2", path.Len())
	}

	// 3 + 4 + 5 in either visiting order.
	_, dist := o.Best()
	if !almostEqual(dist, 12) {
		t.Fatalf("best distance = %v, want 12", dist)
	}
}

func TestOptimizeReturnsPermutation(t *testing.T) {
	stops := spreadStops()
	cfg := OptimizerConfig{PopulationSize: 40, Generations: 30, Seed: 42}
	o, err := NewRouteOptimizer(testOrigin(), stops, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := o.Optimize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path.Len() != len(stops) {
		t.Fatalf("path length = %d, want %d", path.Len(), len(stops))
	}
	want := sortedNames(domain.NewPath(stops))
	if got := sortedNames(path); !slices.Equal(got, want) {
		t.Fatalf("stops = %v, want permutation of %v", got, want)
	}
}

func TestOptimizeNeverWorseThanInitial(t *testing.T) {
	cfg := OptimizerConfig{PopulationSize: 30, Generations: 25, Seed: 7}
	o, err := NewRouteOptimizer(testOrigin(), spreadStops(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, initial := o.Best()
	if _, err := o.Optimize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, final := o.Best()

	if final > initial {
		t.Fatalf("final distance %v worse than initial %v", final, initial)
	}
}

func TestOptimizeCancelledReturnsBestSoFar(t *testing.T) {
	o, err := NewRouteOptimizer(testOrigin(), spreadStops(), OptimizerConfig{Seed: 9}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path, err := o.Optimize(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if path == nil || path.Len() != len(spreadStops()) {
		t.Fatalf("cancelled optimize did not return a full ordering")
	}
}

func TestCrossoverIsAlwaysPermutation(t *testing.T) {
	stops := spreadStops()
	o, err := NewRouteOptimizer(testOrigin(), stops, OptimizerConfig{Seed: 3}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := sortedNames(domain.NewPath(stops))
	p1 := o.newIndividual(o.shuffledStops())
	p2 := o.newIndividual(o.shuffledStops())

	for i := 0; i < 200; i++ {
		child := o.crossover(p1, p2)
		if got := sortedNames(child.path); !slices.Equal(got, want) {
			t.Fatalf("iteration %d: child = %v, want permutation of %v", i, got, want)
		}
		if !almostEqual(child.fitness, o.CompleteDistance(child.path)) {
			t.Fatalf("iteration %d: cached fitness %v != recomputed %v", i, child.fitness, o.CompleteDistance(child.path))
		}
	}
}

func TestMutatePreservesStops(t *testing.T) {
	stops := spreadStops()
	o, err := NewRouteOptimizer(testOrigin(), stops, OptimizerConfig{Seed: 5}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := sortedNames(domain.NewPath(stops))
	in := o.newIndividual(o.shuffledStops())

	for i := 0; i < 200; i++ {
		o.mutate(in)
		if in.path.Len() != len(stops) {
			t.Fatalf("iteration %d: length = %d, want %d", i, in.path.Len(), len(stops))
		}
		if got := sortedNames(in.path); !slices.Equal(got, want) {
			t.Fatalf("iteration %d: stops = %v, want permutation of %v", i, got, want)
		}
		if !almostEqual(in.fitness, o.CompleteDistance(in.path)) {
			t.Fatalf("iteration %d: cached fitness %v != recomputed %v", i, in.fitness, o.CompleteDistance(in.path))
		}
	}
}

func TestMutationRateDecays(t *testing.T) {
	o, err := NewRouteOptimizer(testOrigin(), squareCorners(), OptimizerConfig{Seed: 2}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := o.mutationRate(0); !almostEqual(got, 0.05) {
		t.Fatalf("rate at generation 0 = %v, want 0.05", got)
	}
	if got := o.mutationRate(50); !almostEqual(got, 0.025) {
		t.Fatalf("rate at generation 50 = %v, want 0.025", got)
	}
	if o.mutationRate(99) >= o.mutationRate(50) {
		t.Fatalf("rate did not decay: gen 99 %v >= gen 50 %v", o.mutationRate(99), o.mutationRate(50))
	}
}

func TestInjectDiversityKeepsValidPopulation(t *testing.T) {
	stops := spreadStops()
	o, err := NewRouteOptimizer(testOrigin(), stops, OptimizerConfig{PopulationSize: 20, Seed: 11}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.injectDiversity()

	if len(o.population) != 20 {
		t.Fatalf("population size = %d, want 20", len(o.population))
	}
	want := sortedNames(domain.NewPath(stops))
	for i, in := range o.population {
		if got := sortedNames(in.path); !slices.Equal(got, want) {
			t.Fatalf("individual %d: stops = %v, want permutation of %v", i, got, want)
		}
	}
}
