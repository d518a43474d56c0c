package provider

import (
	"sync"
	"time"

	"github.com/OMGeeky/drive-syncer/id"
	"github.com/OMGeeky/drive-syncer/remote"
)

// uploadOutcome is what a background upload reports back to the
// provider task through scheduler.completions.
type uploadOutcome struct {
	Id   id.Id
	Meta *remote.Metadata
	Err  error
}

// uploadSnapshot is the immutable-for-the-duration-of-one-upload view
// of an entry the scheduler needs. It is captured on the provider task
// at Schedule time and handed unchanged to the background upload
// goroutine, which must never read p.entries/p.graph/p.handles itself.
type uploadSnapshot struct {
	path     string
	mimeType string
}

// pendingUpload tracks one in-flight debounce timer for an id.
type pendingUpload struct {
	cancel chan struct{}
	done   chan struct{}
	snap   uploadSnapshot
}

// scheduler coalesces rapid write/release cycles on the same id into a
// single debounced upload and cancels a superseded one before starting
// the next (spec.md §4.3 Upload debouncer): "send cancel and await it
// before spawning." Schedule itself never blocks on that await — it
// always runs on the single provider task, and an upload already past
// its debounce window is mid-network-I/O, so waiting for it inline
// would stall every other queued request. The cancel-then-await
// instead happens on a dedicated goroutine per Schedule call, chained
// behind whichever pendingUpload it superseded.
type scheduler struct {
	window time.Duration
	upload func(id.Id, uploadSnapshot) uploadOutcome

	mu      sync.Mutex
	pending map[id.Id]*pendingUpload

	completions chan uploadOutcome
}

func newScheduler(window time.Duration, upload func(id.Id, uploadSnapshot) uploadOutcome) *scheduler {
	return &scheduler{
		window:      window,
		upload:      upload,
		pending:     make(map[id.Id]*pendingUpload),
		completions: make(chan uploadOutcome, 16),
	}
}

// Schedule (re)starts the debounce window for objId with snap as the
// content to upload once the window elapses uncancelled. It returns
// immediately: if a prior pendingUpload exists, the cancel-and-await
// against it runs on a background goroutine rather than the caller's.
func (s *scheduler) Schedule(objId id.Id, snap uploadSnapshot) {
	s.mu.Lock()
	prev, ok := s.pending[objId]
	pu := &pendingUpload{cancel: make(chan struct{}), done: make(chan struct{}), snap: snap}
	s.pending[objId] = pu
	s.mu.Unlock()

	go func() {
		if ok {
			close(prev.cancel)
			<-prev.done
		}
		s.run(objId, pu)
	}()
}

func (s *scheduler) run(objId id.Id, pu *pendingUpload) {
	defer close(pu.done)
	timer := time.NewTimer(s.window)
	defer timer.Stop()
	select {
	case <-pu.cancel:
		return
	case <-timer.C:
	}

	s.mu.Lock()
	if s.pending[objId] == pu {
		delete(s.pending, objId)
	}
	s.mu.Unlock()

	s.completions <- s.upload(objId, pu.snap)
}
