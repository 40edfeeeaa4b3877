package bloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/cachegate/cachegate/prom"
	"github.com/cespare/xxhash/v2"
)

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2sq is ln(2)^2.
	ln2sq = 0.4804530139182014
)

// Filter is a classic m/k bloom filter. It is not safe for concurrent use;
// each gate owns its filter exclusively and shares state only through the
// serialized form.
type Filter struct {
	words []uint64
	m     uint64 // size of the bit array in bits
	k     uint64 // number of probes per key
	count uint64 // keys added so far (approximate after a merge)
}

// New returns a filter sized for the expected number of keys and the target
// false positive probability. Parameters are fixed for the life of the
// filter; a new filter must be allocated to change them.
func New(capacity uint64, probability float64) (*Filter, error) {
	if capacity == 0 {
		return nil, errors.New("capacity must be greater than 0")
	}
	if probability <= 0 || probability >= 1 {
		return nil, fmt.Errorf("probability must be in (0,1), got %v", probability)
	}

	// m = -n * ln(p) / ln(2)^2
	m := uint64(math.Ceil(-float64(capacity) * math.Log(probability) / ln2sq))
	if m < 64 {
		m = 64
	}
	// k = (m / n) * ln(2)
	k := uint64(math.Round(float64(m) / float64(capacity) * ln2))
	if k < 1 {
		k = 1
	}

	return &Filter{
		words: make([]uint64, (m+63)/64),
		m:     m,
		k:     k,
	}, nil
}

// Add records the key. Setting bits that are already set has no effect.
func (f *Filter) Add(key string) {
	h1, h2 := hashKey(key)
	for i := uint64(0); i < f.k; i++ {
		idx := (h1 + i*h2) % f.m
		f.words[idx/64] |= 1 << (idx % 64)
	}
	f.count++
}

// Test reports whether the key was possibly added. A false result is
// definitive; a true result is wrong with at most the configured
// probability.
func (f *Filter) Test(key string) bool {
	prom.FilterLookups.Inc()
	h1, h2 := hashKey(key)
	for i := uint64(0); i < f.k; i++ {
		idx := (h1 + i*h2) % f.m
		if f.words[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	prom.FilterHits.Inc()
	return true
}

// hashKey derives the two base hashes for double hashing from a single
// xxhash64 pass. h2 is forced odd so successive probes cycle the full
// bit array.
func hashKey(key string) (h1, h2 uint64) {
	h := xxhash.Sum64String(key)
	h1 = h
	h2 = (h>>17 | h<<47) | 1
	return h1, h2
}

// Count returns the approximate number of keys added.
func (f *Filter) Count() uint64 { return f.count }

// Bits returns the size of the bit array.
func (f *Filter) Bits() uint64 { return f.m }

// K returns the number of probes per key.
func (f *Filter) K() uint64 { return f.k }

// EstimatedFillRatio returns the proportion of bits currently set.
func (f *Filter) EstimatedFillRatio() float64 {
	var set uint64
	for _, w := range f.words {
		set += uint64(bits.OnesCount64(w))
	}
	return float64(set) / float64(f.m)
}

// EstimatedFalsePositiveRate returns (1 - e^(-kn/m))^k for the current
// count.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	if f.count == 0 {
		return 0
	}
	kf := float64(f.k)
	return math.Pow(1-math.Exp(-kf*float64(f.count)/float64(f.m)), kf)
}

// Serialization format, little-endian:
//   - version (1 byte)
//   - k (8 bytes)
//   - m (8 bytes)
//   - count (8 bytes)
//   - bit array words (m/64 rounded up, 8 bytes each)
const (
	serializeVersion byte = 1
	headerSize            = 25
)

var (
	// ErrInvalidData is returned when serialized data is truncated or corrupt.
	ErrInvalidData = errors.New("bloom: invalid serialized data")
	// ErrUnsupportedVersion is returned for serialization versions this build does not understand.
	ErrUnsupportedVersion = errors.New("bloom: unsupported serialization version")
)

// MarshalBinary serializes the filter.
func (f *Filter) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize+len(f.words)*8)
	buf[0] = serializeVersion
	binary.LittleEndian.PutUint64(buf[1:9], f.k)
	binary.LittleEndian.PutUint64(buf[9:17], f.m)
	binary.LittleEndian.PutUint64(buf[17:25], f.count)
	for i, w := range f.words {
		binary.LittleEndian.PutUint64(buf[headerSize+i*8:], w)
	}
	return buf, nil
}

// UnmarshalBinary reconstructs a filter from its serialized form.
func UnmarshalBinary(data []byte) (*Filter, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrInvalidData, len(data), headerSize)
	}
	if data[0] != serializeVersion {
		return nil, fmt.Errorf("%w: got version %d, expected %d", ErrUnsupportedVersion, data[0], serializeVersion)
	}
	k := binary.LittleEndian.Uint64(data[1:9])
	m := binary.LittleEndian.Uint64(data[9:17])
	count := binary.LittleEndian.Uint64(data[17:25])
	if k == 0 || m == 0 {
		return nil, fmt.Errorf("%w: zero k or m", ErrInvalidData)
	}
	// guard the allocation below against garbage headers
	const maxBits = uint64(1) << 40
	if m > maxBits {
		return nil, fmt.Errorf("%w: bit array of %d bits is implausibly large", ErrInvalidData, m)
	}
	words := (m + 63) / 64
	if uint64(len(data)) != headerSize+words*8 {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidData, headerSize+words*8, len(data))
	}
	f := &Filter{
		words: make([]uint64, words),
		m:     m,
		k:     k,
		count: count,
	}
	for i := range f.words {
		f.words[i] = binary.LittleEndian.Uint64(data[headerSize+i*8:])
	}
	return f, nil
}
