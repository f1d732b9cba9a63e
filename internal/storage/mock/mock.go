// Package mock provides an in-memory storage.Store for tests and for
// running the pipeline without a database.
package mock

import (
	"context"
	"sync"

	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/storage"
)

// Store is an in-memory implementation of storage.Store. The FailWith
// field injects an error into every write, for exercising the
// pipeline's fatal-error path.
type Store struct {
	mu         sync.Mutex
	images     []storage.ImageRecord
	faces      []storage.FaceRecord
	identities []identity.Identity
	nextID     int64

	FailWith error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) SaveImage(_ context.Context, img *storage.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	img.ID = s.nextID
	s.nextID++
	s.images = append(s.images, *img)
	return nil
}

func (s *Store) ImageByHash(_ context.Context, hash string) (*storage.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.images {
		if s.images[i].ContentHash == hash {
			img := s.images[i]
			return &img, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) AcceptedHashes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hashes := make([]string, 0, len(s.images))
	for i := range s.images {
		hashes = append(hashes, s.images[i].ContentHash)
	}
	return hashes, nil
}

func (s *Store) SaveFace(_ context.Context, face *storage.FaceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	face.ID = s.nextID
	s.nextID++
	s.faces = append(s.faces, *face)
	return nil
}

func (s *Store) FacesByIdentity(_ context.Context, identityID string) ([]storage.FaceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.FaceRecord
	for i := range s.faces {
		if s.faces[i].IdentityID == identityID {
			out = append(out, s.faces[i])
		}
	}
	return out, nil
}

func (s *Store) ReassignFaces(_ context.Context, fromID, toID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	var moved int64
	for i := range s.faces {
		if s.faces[i].IdentityID == fromID {
			s.faces[i].IdentityID = toID
			moved++
		}
	}
	return moved, nil
}

func (s *Store) SaveIdentities(_ context.Context, identities []identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.identities = make([]identity.Identity, len(identities))
	copy(s.identities, identities)
	return nil
}

func (s *Store) LoadIdentities(_ context.Context) ([]identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.Identity, len(s.identities))
	copy(out, s.identities)
	return out, nil
}

func (s *Store) Stats(_ context.Context) (*storage.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &storage.Stats{
		Images:     len(s.images),
		Faces:      len(s.faces),
		Identities: len(s.identities),
	}
	for i := range s.identities {
		if s.identities[i].Named() {
			stats.Named++
		}
	}
	return stats, nil
}

// Images returns a copy of the stored images for assertions.
func (s *Store) Images() []storage.ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.ImageRecord, len(s.images))
	copy(out, s.images)
	return out
}

// Faces returns a copy of the stored faces for assertions.
func (s *Store) Faces() []storage.FaceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.FaceRecord, len(s.faces))
	copy(out, s.faces)
	return out
}
