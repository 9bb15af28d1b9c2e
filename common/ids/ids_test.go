package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomIsUniqueAcrossGoroutines(t *testing.T) {
	var (
		gen  Random
		mu   sync.Mutex
		seen = make(map[uuid.UUID]struct{})
		wg   sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				id := gen.New()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 4000)
	for id := range seen {
		require.Equal(t, uuid.Version(4), id.Version())
		break
	}
}

func TestSequenceIsPredictable(t *testing.T) {
	var seq Sequence

	first := seq.New()
	second := seq.New()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", first.String())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", second.String())
}
