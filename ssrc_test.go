package voice

import "testing"

func TestSSRCMapStoreLoad(t *testing.T) {
	m := newSSRCMap()

	if _, ok := m.Load(42); ok {
		t.Fatalf("Load on empty map returned ok=true")
	}

	m.Store(42, 100)
	got, ok := m.Load(42)
	if !ok || got != 100 {
		t.Fatalf("Load(42) = %v, %v; want 100, true", got, ok)
	}
}

func TestSSRCMapReannounceOverwrites(t *testing.T) {
	m := newSSRCMap()

	m.Store(7, 1)
	m.Store(7, 2)

	got, ok := m.Load(7)
	if !ok || got != 2 {
		t.Fatalf("Load(7) = %v, %v; want 2, true", got, ok)
	}
}

func TestSSRCMapNeverLosesEntry(t *testing.T) {
	m := newSSRCMap()

	for i := uint32(0); i < 100; i++ {
		m.Store(i, ID(i+1000))
	}
	for i := uint32(0); i < 100; i++ {
		got, ok := m.Load(i)
		if !ok || got != ID(i+1000) {
			t.Fatalf("Load(%d) = %v, %v; want %d, true", i, got, ok, i+1000)
		}
	}
}
