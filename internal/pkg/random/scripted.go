package random

import "fmt"

// Scripted is a Source that replays predetermined indices. It is meant for
// tests that need a specific reel, fortune or hand. Each queue is consumed in
// order; drawing from an exhausted queue panics so a test never silently
// falls back to a default.
type Scripted struct {
	Choices  []int
	Weighted []int
	Samples  [][]int
}

// Choice returns the next scripted uniform index.
func (s *Scripted) Choice(n int) int {
	if len(s.Choices) == 0 {
		panic("random: scripted Choice exhausted")
	}
	i := s.Choices[0]
	s.Choices = s.Choices[1:]
	if i < 0 || i >= n {
		panic(fmt.Sprintf("random: scripted choice %d out of range [0,%d)", i, n))
	}
	return i
}

// WeightedChoices returns the next k scripted weighted indices.
func (s *Scripted) WeightedChoices(weights []float64, k int) []int {
	if len(s.Weighted) < k {
		panic("random: scripted WeightedChoices exhausted")
	}
	out := append([]int(nil), s.Weighted[:k]...)
	s.Weighted = s.Weighted[k:]
	return out
}

// Sample returns the next scripted sample.
func (s *Scripted) Sample(n, k int) []int {
	if len(s.Samples) == 0 {
		panic("random: scripted Sample exhausted")
	}
	out := s.Samples[0]
	s.Samples = s.Samples[1:]
	if len(out) != k {
		panic(fmt.Sprintf("random: scripted sample has %d indices, want %d", len(out), k))
	}
	return out
}
