package document

import (
	"sync"

	"docchat-client/internal/entity"
)

// registry tracks the document refs known in one session. Filenames are
// unique, statuses only move forward and the selection never names an
// unknown id.
type registry struct {
	mu   sync.RWMutex
	refs []entity.DocumentRef
	byID map[string]int
}

func newRegistry() *registry {
	return &registry{byID: make(map[string]int)}
}

// upsert registers a ref or advances an existing one. A new ref whose
// filename is already taken by another id is not registered.
func (r *registry) upsert(ref entity.DocumentRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byID[ref.Id]; ok {
		r.advanceLocked(i, ref.ProcessingStatus)
		return true
	}
	for _, existing := range r.refs {
		if existing.Filename == ref.Filename {
			return false
		}
	}
	ref.Selected = false
	r.byID[ref.Id] = len(r.refs)
	r.refs = append(r.refs, ref)
	return true
}

// advance applies status when it ranks above the current one.
func (r *registry) advance(id string, status entity.ProcessingStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return false
	}
	return r.advanceLocked(i, status)
}

func (r *registry) advanceLocked(i int, status entity.ProcessingStatus) bool {
	if status.Rank() <= r.refs[i].ProcessingStatus.Rank() {
		return false
	}
	r.refs[i].ProcessingStatus = status
	return true
}

func (r *registry) status(id string) (entity.ProcessingStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return r.refs[i].ProcessingStatus, true
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return false
	}
	r.refs = append(r.refs[:i], r.refs[i+1:]...)
	delete(r.byID, id)
	for j := i; j < len(r.refs); j++ {
		r.byID[r.refs[j].Id] = j
	}
	return true
}

func (r *registry) setSelected(id string, selected bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return false
	}
	r.refs[i].Selected = selected
	return true
}

func (r *registry) selected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, ref := range r.refs {
		if ref.Selected {
			ids = append(ids, ref.Id)
		}
	}
	return ids
}

func (r *registry) filenames() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{}, len(r.refs))
	for _, ref := range r.refs {
		out[ref.Filename] = struct{}{}
	}
	return out
}

func (r *registry) list() []entity.DocumentRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.DocumentRef(nil), r.refs...)
}
