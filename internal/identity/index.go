package identity

import "github.com/coder/hnsw"

const indexMaxNeighbors = 16

// sampleIndex is an approximate-nearest-neighbor index over samples,
// used to narrow matching to a handful of candidate identities when
// the registry grows large. It carries no lock of its own; the
// registry's lock guards all access.
type sampleIndex struct {
	graph *hnsw.Graph[string]
	owner map[string]string // sample ID -> identity ID
}

func newSampleIndex() *sampleIndex {
	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return &sampleIndex{
		graph: g,
		owner: make(map[string]string),
	}
}

func (x *sampleIndex) add(sampleID, identityID string, embedding []float32) {
	x.graph.Add(hnsw.MakeNode(sampleID, embedding))
	x.owner[sampleID] = identityID
}

// remove drops a sample from candidate results. The graph keeps the
// node (HNSW has no true deletion) but lookups filter through owner.
func (x *sampleIndex) remove(sampleID string) {
	delete(x.owner, sampleID)
}

// reassign moves a sample's ownership to another identity, used when
// identities are merged.
func (x *sampleIndex) reassign(sampleID, identityID string) {
	if _, ok := x.owner[sampleID]; ok {
		x.owner[sampleID] = identityID
	}
}

// candidates returns the distinct identity IDs owning the k nearest
// samples to the query.
func (x *sampleIndex) candidates(query []float32, k int) []string {
	neighbors := x.graph.Search(query, k)

	seen := make(map[string]struct{}, len(neighbors))
	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		owner, ok := x.owner[n.Key]
		if !ok {
			continue // evicted sample
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		ids = append(ids, owner)
	}
	return ids
}
