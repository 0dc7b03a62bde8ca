package abuse

import (
	"context"
	"fmt"
	"time"

	"brokebuy/internal/repositories"
)

// tradeGraph is the directed seller->buyer graph of completed sales in a
// window, loaded lazily one seller at a time.
type tradeGraph struct {
	listings repositories.ListingRepository
	since    time.Time
	edges    map[string][]string
}

func newTradeGraph(listings repositories.ListingRepository, since time.Time) *tradeGraph {
	return &tradeGraph{
		listings: listings,
		since:    since,
		edges:    make(map[string][]string),
	}
}

func (g *tradeGraph) buyersOf(ctx context.Context, seller string) ([]string, error) {
	if buyers, ok := g.edges[seller]; ok {
		return buyers, nil
	}
	sales, err := g.listings.SalesBySeller(ctx, seller, g.since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales of %s: %w", seller, err)
	}
	seen := make(map[string]bool, len(sales))
	buyers := make([]string, 0, len(sales))
	for _, sale := range sales {
		if !seen[sale.BuyerID] {
			seen[sale.BuyerID] = true
			buyers = append(buyers, sale.BuyerID)
		}
	}
	g.edges[seller] = buyers
	return buyers, nil
}

// cycleThrough reports whether start lies on a trade cycle of at least
// three users. That holds when, for some buyer y of start, a breadth-first
// walk from y that never passes through start reaches a user x != y who
// sold to start.
func (g *tradeGraph) cycleThrough(ctx context.Context, start string) (bool, error) {
	first, err := g.buyersOf(ctx, start)
	if err != nil {
		return false, err
	}

	expanded := 0
	for _, y := range first {
		if y == start {
			continue
		}
		visited := map[string]bool{start: true, y: true}
		queue := []string{y}
		for len(queue) > 0 {
			if expanded >= maxGraphNodes {
				return false, nil
			}
			current := queue[0]
			queue = queue[1:]
			expanded++

			next, err := g.buyersOf(ctx, current)
			if err != nil {
				return false, err
			}
			for _, buyer := range next {
				if buyer == start && current != y {
					return true, nil
				}
				if !visited[buyer] {
					visited[buyer] = true
					queue = append(queue, buyer)
				}
			}
		}
	}
	return false, nil
}
