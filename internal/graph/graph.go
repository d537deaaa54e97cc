// Package graph traverses row reference graphs without recursion.
package graph

import "github.com/bits-and-blooms/bitset"

// Reachable returns every node reachable from start (inclusive) in a graph of
// n nodes. Out-of-range start or neighbor indexes are ignored.
func Reachable(start []int, neighbors func(int) []int, n int) *bitset.BitSet {
	visited := bitset.New(uint(n))
	stack := make([]int, 0, len(start))
	for _, s := range start {
		if s >= 0 && s < n && !visited.Test(uint(s)) {
			visited.Set(uint(s))
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range neighbors(cur) {
			if next < 0 || next >= n || visited.Test(uint(next)) {
				continue
			}
			visited.Set(uint(next))
			stack = append(stack, next)
		}
	}
	return visited
}
