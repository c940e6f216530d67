package voice

import "github.com/kawasin73/umutex"

// ssrcMap is the concurrent SSRC→user-id mapping populated as speaking
// announcements arrive (§3's SSRC map, §4.5 op 5). Entries are never
// removed, only overwritten if a user's SSRC is reannounced.
//
// Grounded on internal/moreatomic/syncmap.go's upgradeable-mutex
// pattern, specialized here to the concrete uint32/ID key-value types
// the receive path needs instead of interface{}.
type ssrcMap struct {
	mu upmu
	m  map[uint32]ID
}

// upmu is a thin alias so this file's one use of umutex.UMutex doesn't
// need the import repeated in every method signature.
type upmu = umutex.UMutex

func newSSRCMap() *ssrcMap {
	return &ssrcMap{m: make(map[uint32]ID)}
}

// Store records that ssrc belongs to userID, overwriting any prior
// owner. Follows the teacher's RLock-then-Upgrade pattern so concurrent
// Loads never block behind a Store that turns out to be a no-op write.
func (s *ssrcMap) Store(ssrc uint32, userID ID) {
	s.mu.RLock()
	if cur, ok := s.m[ssrc]; ok && cur == userID {
		s.mu.RUnlock()
		return
	}

	for !s.mu.Upgrade() {
	}

	s.m[ssrc] = userID
	s.mu.Unlock()
}

// Load returns the user id associated with ssrc, or ok=false if it has
// never been announced.
func (s *ssrcMap) Load(ssrc uint32) (userID ID, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok = s.m[ssrc]
	return
}
