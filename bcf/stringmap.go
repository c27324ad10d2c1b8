package bcf

import (
	"fmt"

	"github.com/nimezhu/hts/header"
)

// AppendStringMapIndices appends dictionary indices as a typed integer
// vector. An empty set is the single byte 0x00.
func AppendStringMapIndices(dst []byte, indices []int) []byte {
	vs := make([]int32, len(indices))
	for i, idx := range indices {
		vs[i] = int32(idx)
	}
	return AppendInts(dst, vs)
}

// ReadStringMapIndices decodes a vector written by AppendStringMapIndices.
// End of vector values close the set early.
func ReadStringMapIndices(src []byte) ([]int, int, error) {
	vs, n, err := ReadInts(src)
	if err != nil {
		return nil, 0, err
	}
	indices := make([]int, 0, len(vs))
	for _, v := range vs {
		if v == Int32EndOfVector {
			break
		}
		if v < 0 {
			return nil, 0, fmt.Errorf("%w: string map index %d", ErrMalformedValue, v)
		}
		indices = append(indices, int(v))
	}
	return indices, n, nil
}

// AppendFilters encodes filter names by their index in the header's
// string dictionary.
func AppendFilters(dst []byte, strings header.Dictionary, filters []string) ([]byte, error) {
	indices := make([]int, len(filters))
	for i, id := range filters {
		idx, err := header.Lookup(strings, id)
		if err != nil {
			return dst, fmt.Errorf("filter missing from string map: %w", err)
		}
		indices[i] = idx
	}
	return AppendStringMapIndices(dst, indices), nil
}

// DecodeFilters resolves an encoded filter set to names.
func DecodeFilters(src []byte, strings header.Dictionary) ([]string, int, error) {
	indices, n, err := ReadStringMapIndices(src)
	if err != nil {
		return nil, 0, err
	}
	ids, err := resolveAll(strings, indices)
	if err != nil {
		return nil, 0, err
	}
	return ids, n, nil
}

func resolveAll(strings header.Dictionary, indices []int) ([]string, error) {
	ids := make([]string, len(indices))
	for i, idx := range indices {
		id, err := header.Resolve(strings, idx)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// AppendInfoKey encodes an INFO or FORMAT key as a single index.
func AppendInfoKey(dst []byte, strings header.Dictionary, key string) ([]byte, error) {
	idx, err := header.Lookup(strings, key)
	if err != nil {
		return dst, fmt.Errorf("key missing from string map: %w", err)
	}
	return AppendStringMapIndices(dst, []int{idx}), nil
}

// ReadInfoKey decodes the index of an INFO or FORMAT key.
func ReadInfoKey(src []byte) (int, int, error) {
	indices, n, err := ReadStringMapIndices(src)
	if err != nil {
		return 0, 0, err
	}
	if len(indices) != 1 {
		return 0, 0, fmt.Errorf("%w: key with %d indices", ErrMalformedValue, len(indices))
	}
	return indices[0], n, nil
}
