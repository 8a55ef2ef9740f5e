package schema

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// FeatureRecord is a model-ready input: one finite value per schema feature,
// in schema order, with categoricals already encoded. It is immutable.
type FeatureRecord struct {
	names  []string
	values []float64
}

// NewRecord builds a record from values given in schema order
func NewRecord(s *Schema, values []float64) (FeatureRecord, error) {
	if len(values) != s.Len() {
		return FeatureRecord{}, fmt.Errorf("record has %d values, schema has %d features", len(values), s.Len())
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeatureRecord{}, fmt.Errorf("feature %q is not finite", s.Features[i].Name)
		}
	}
	return FeatureRecord{
		names:  s.Names(),
		values: append([]float64(nil), values...),
	}, nil
}

// Len returns the number of features in the record
func (r FeatureRecord) Len() int {
	return len(r.values)
}

// Names returns a copy of the feature names in order
func (r FeatureRecord) Names() []string {
	return append([]string(nil), r.names...)
}

// Values returns a copy of the feature values in order
func (r FeatureRecord) Values() []float64 {
	return append([]float64(nil), r.values...)
}

// Value returns the value of the named feature
func (r FeatureRecord) Value(name string) (float64, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return 0, false
}

// Key is a stable digest of the record, used to cache decisions
func (r FeatureRecord) Key() string {
	h := xxhash.New()
	var buf [8]byte
	for i, n := range r.names {
		_, _ = h.WriteString(n)
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(r.values[i]))
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
