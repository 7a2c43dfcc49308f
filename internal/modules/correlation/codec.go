package correlation

import (
	"fmt"
	"strconv"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshot is the cached form of a correlation map.
// LatestContest, DrawCount and Fingerprint identify the draw window the map was
// computed from; Fingerprint covers every contest number and drawn number, so a
// corrected or re-imported history never matches an older entry.
type snapshot struct {
	Entries       []domain.CorrelationEntry `msgpack:"entries"`
	PoolSize      int                       `msgpack:"pool_size"`
	Threshold     float64                   `msgpack:"threshold"`
	LatestContest int                       `msgpack:"latest_contest"`
	DrawCount     int                       `msgpack:"draw_count"`
	Fingerprint   uint64                    `msgpack:"fingerprint"`
}

// fingerprint hashes the contest numbers and drawn numbers of draws in order
func fingerprint(draws []domain.Draw) uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 64)
	for _, d := range draws {
		buf = strconv.AppendInt(buf[:0], int64(d.ContestNumber), 10)
		buf = append(buf, ':')
		for _, n := range d.Numbers {
			buf = strconv.AppendInt(buf, int64(n), 10)
			buf = append(buf, ',')
		}
		buf = append(buf, ';')
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func encodeSnapshot(m *Map, draws []domain.Draw) ([]byte, error) {
	s := snapshot{
		Entries:       m.Entries(),
		PoolSize:      m.PoolSize(),
		Threshold:     m.Threshold(),
		LatestContest: domain.LatestContest(draws),
		DrawCount:     len(draws),
		Fingerprint:   fingerprint(draws),
	}
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode correlation snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	var s snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode correlation snapshot: %w", err)
	}
	return &s, nil
}

// matches reports whether the snapshot was computed from the same window and settings
func (s *snapshot) matches(draws []domain.Draw, poolSize int, threshold float64) bool {
	return s.PoolSize == poolSize &&
		s.Threshold == threshold &&
		s.DrawCount == len(draws) &&
		s.LatestContest == domain.LatestContest(draws) &&
		s.Fingerprint == fingerprint(draws)
}
