package matching

import (
	"container/heap"
	"context"
	"math"
	"sort"

	"github.com/spigell/blindmatch/internal/profile"
)

// CandidatePool produces the eligible candidates for a requester: active,
// onboarded, with a vector, never matched with the requester before.
type CandidatePool interface {
	Candidates(ctx context.Context, userID string, user profile.Profile) ([]profile.Profile, error)
}

// StaticPool serves a fixed list of profiles. The requester is left out.
type StaticPool []profile.Profile

func (p StaticPool) Candidates(_ context.Context, userID string, _ profile.Profile) ([]profile.Profile, error) {
	out := make([]profile.Profile, 0, len(p))
	for _, candidate := range p {
		if candidate.ID == userID {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

// VectorPool narrows another pool down to the TopK candidates whose vectors
// are closest to the requester's by cosine similarity.
type VectorPool struct {
	Pool CandidatePool
	TopK int
}

func (p VectorPool) Candidates(ctx context.Context, userID string, user profile.Profile) ([]profile.Profile, error) {
	candidates, err := p.Pool.Candidates(ctx, userID, user)
	if err != nil {
		return nil, err
	}

	queryNorm := norm(user.Vector)
	if p.TopK <= 0 || queryNorm == 0 || len(candidates) <= p.TopK {
		return candidates, nil
	}

	h := &similarityHeap{}
	heap.Init(h)

	for i, candidate := range candidates {
		score := cosine(user.Vector, candidate.Vector, queryNorm)
		if h.Len() < p.TopK {
			heap.Push(h, similarity{index: i, score: score})
		} else if score > (*h)[0].score {
			(*h)[0] = similarity{index: i, score: score}
			heap.Fix(h, 0)
		}
	}

	nearest := make([]profile.Profile, 0, h.Len())
	for _, item := range *h {
		nearest = append(nearest, candidates[item.index])
	}
	sort.Slice(nearest, func(i, j int) bool { return nearest[i].ID < nearest[j].ID })

	return nearest, nil
}

type similarity struct {
	index int
	score float32
}

// similarityHeap is a min-heap of similarity ordered by score.
type similarityHeap []similarity

func (h similarityHeap) Len() int           { return len(h) }
func (h similarityHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h similarityHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *similarityHeap) Push(x any)        { *h = append(*h, x.(similarity)) }
func (h *similarityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). Vectors of different length score 0.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}
