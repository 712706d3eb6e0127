package router

import (
	"container/heap"
	"math"

	"github.com/samber/lo"

	"git.fiblab.net/sim/cyclesim/network"
)

// dijkstra runs a single-source search from start to end over the
// precomputed per-edge weights. Cost ties are broken by lexicographic node
// id order so that repeated runs reconstruct identical paths. Returns the
// node path and its cost, or (nil, +Inf) when end is unreachable.
func dijkstra(net *network.Network, weights []float64, start, end int) ([]int, float64) {
	if start == end {
		return []int{start}, 0
	}
	dist := make(map[int]float64, 16)
	cameFrom := make(map[int]int, 16)
	dist[start] = 0

	openSet := make(PriorityQueue, 1)
	openSetMap := make(map[int]*Item, 16)
	openSet[0] = &Item{Value: start, Priority: 0, Rank: net.LexRank(start), Index: 0}
	openSetMap[start] = openSet[0]
	heap.Init(&openSet)

	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		if cur == end {
			return reconstructPath(cameFrom, cur), dist[cur]
		}
		for _, ei := range net.OutEdges(cur) {
			e := net.Edge(ei)
			neighbor := e.To
			tentative := dist[cur] + weights[ei]
			known, ok := dist[neighbor]
			if !ok {
				known = math.Inf(0)
			}
			if tentative < known {
				cameFrom[neighbor] = cur
				dist[neighbor] = tentative
				if ok && openSetMap[neighbor].Index >= 0 {
					openSetMap[neighbor].Priority = tentative
					heap.Fix(&openSet, openSetMap[neighbor].Index)
				} else {
					item := &Item{Value: neighbor, Priority: tentative, Rank: net.LexRank(neighbor)}
					heap.Push(&openSet, item)
					openSetMap[neighbor] = item
				}
			}
		}
	}
	return nil, math.Inf(0)
}

func reconstructPath(cameFrom map[int]int, cur int) []int {
	pathBeforeReversed := []int{cur}
	for {
		from, ok := cameFrom[cur]
		if !ok {
			break
		}
		cur = from
		pathBeforeReversed = append(pathBeforeReversed, cur)
	}
	return lo.Reverse(pathBeforeReversed)
}
