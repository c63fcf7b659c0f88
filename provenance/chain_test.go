// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provenance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/imprint-io/imprint/fingerprint"
	"github.com/imprint-io/imprint/provenance"
	"github.com/imprint-io/imprint/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves records from a map, tracking lookups
type fakeSource struct {
	records map[string]*registry.ContentRecord
	lookups int
	failOn  string
}

func (f *fakeSource) Verify(
	_ context.Context,
	fp fingerprint.Fingerprint,
) (*registry.ContentRecord, error) {
	f.lookups++
	if f.failOn != "" && fp.String() == f.failOn {
		return nil, errors.New("ledger unavailable")
	}
	return f.records[fp.String()], nil
}

func mustParse(t *testing.T, s string) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.ParseFingerprint(s)
	require.NoError(t, err)
	return fp
}

func TestBuildChainOrdering(t *testing.T) {
	// C derives from B derives from original A
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"aaaaaaaaaaaaaaaa": {
				Fingerprint:  "aaaaaaaaaaaaaaaa",
				CreatorName:  "Alice",
				RegisteredAt: 100,
			},
			"bbbbbbbbbbbbbbbb": {
				Fingerprint:       "bbbbbbbbbbbbbbbb",
				CreatorName:       "Bob",
				ParentFingerprint: "aaaaaaaaaaaaaaaa",
				DerivedBy:         "crop",
				RegisteredAt:      200,
			},
			"cccccccccccccccc": {
				Fingerprint:       "cccccccccccccccc",
				CreatorName:       "Carol",
				ParentFingerprint: "bbbbbbbbbbbbbbbb",
				DerivedBy:         "recompress",
				RegisteredAt:      300,
			},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "cccccccccccccccc"),
	)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	// Oldest ancestor first, queried node last
	assert.Equal(t, "aaaaaaaaaaaaaaaa", chain[0].Fingerprint)
	assert.Equal(t, "Alice", chain[0].CreatorName)
	assert.True(t, chain[0].IsOriginal)
	assert.Empty(t, chain[0].DerivedBy)

	assert.Equal(t, "bbbbbbbbbbbbbbbb", chain[1].Fingerprint)
	assert.Equal(t, "crop", chain[1].DerivedBy)
	assert.False(t, chain[1].IsOriginal)

	assert.Equal(t, "cccccccccccccccc", chain[2].Fingerprint)
	assert.Equal(t, "recompress", chain[2].DerivedBy)
	assert.False(t, chain[2].IsOriginal)
}

func TestBuildChainOriginal(t *testing.T) {
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"aaaaaaaaaaaaaaaa": {
				Fingerprint: "aaaaaaaaaaaaaaaa",
				CreatorName: "Alice",
			},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "aaaaaaaaaaaaaaaa"),
	)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.True(t, chain[0].IsOriginal)
}

func TestBuildChainUnregistered(t *testing.T) {
	source := &fakeSource{records: map[string]*registry.ContentRecord{}}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "deadbeefcafef00d"),
	)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestBuildChainDanglingParent(t *testing.T) {
	// The parent link points at a record that was never registered; the
	// chain truncates at the last known hop
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"bbbbbbbbbbbbbbbb": {
				Fingerprint:       "bbbbbbbbbbbbbbbb",
				CreatorName:       "Bob",
				ParentFingerprint: "aaaaaaaaaaaaaaaa",
				DerivedBy:         "resize",
			},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "bbbbbbbbbbbbbbbb"),
	)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", chain[0].Fingerprint)
}

func TestBuildChainCycle(t *testing.T) {
	// A and B claim each other as parent; the walk must terminate and
	// return the hops collected before the repeat
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"aaaaaaaaaaaaaaaa": {
				Fingerprint:       "aaaaaaaaaaaaaaaa",
				ParentFingerprint: "bbbbbbbbbbbbbbbb",
			},
			"bbbbbbbbbbbbbbbb": {
				Fingerprint:       "bbbbbbbbbbbbbbbb",
				ParentFingerprint: "aaaaaaaaaaaaaaaa",
			},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "aaaaaaaaaaaaaaaa"),
	)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestBuildChainSelfParent(t *testing.T) {
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"aaaaaaaaaaaaaaaa": {
				Fingerprint:       "aaaaaaaaaaaaaaaa",
				ParentFingerprint: "aaaaaaaaaaaaaaaa",
			},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "aaaaaaaaaaaaaaaa"),
	)
	require.NoError(t, err)
	assert.Len(t, chain, 1)
}

func TestBuildChainMaxDepth(t *testing.T) {
	// A linear chain longer than maxDepth gets truncated at the cap
	records := make(map[string]*registry.ContentRecord)
	var fp [10]string
	for i := range fp {
		fp[i] = string(rune('0'+i)) + "aaaaaaaaaaaaaaa"
	}
	for i := range fp {
		rec := &registry.ContentRecord{Fingerprint: fp[i]}
		if i < len(fp)-1 {
			rec.ParentFingerprint = fp[i+1]
		}
		records[fp[i]] = rec
	}
	source := &fakeSource{records: records}
	walker := provenance.NewWalker(nil, source, 3)

	chain, err := walker.BuildChain(context.Background(), mustParse(t, fp[0]))
	require.NoError(t, err)
	assert.Len(t, chain, 3)
	assert.Equal(t, 3, source.lookups)
	// Queried node is last even in a truncated chain
	assert.Equal(t, fp[0], chain[2].Fingerprint)
}

func TestBuildChainLookupFailure(t *testing.T) {
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"bbbbbbbbbbbbbbbb": {
				Fingerprint:       "bbbbbbbbbbbbbbbb",
				ParentFingerprint: "aaaaaaaaaaaaaaaa",
			},
		},
		failOn: "aaaaaaaaaaaaaaaa",
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "bbbbbbbbbbbbbbbb"),
	)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", chain[0].Fingerprint)
}

func TestBuildChainUnparsableParent(t *testing.T) {
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"bbbbbbbbbbbbbbbb": {
				Fingerprint:       "bbbbbbbbbbbbbbbb",
				ParentFingerprint: "not-a-fingerprint",
			},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	chain, err := walker.BuildChain(
		context.Background(),
		mustParse(t, "bbbbbbbbbbbbbbbb"),
	)
	require.NoError(t, err)
	require.Len(t, chain, 1)
}

func TestBuildChainContextCanceled(t *testing.T) {
	source := &fakeSource{
		records: map[string]*registry.ContentRecord{
			"aaaaaaaaaaaaaaaa": {Fingerprint: "aaaaaaaaaaaaaaaa"},
		},
	}
	walker := provenance.NewWalker(nil, source, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := walker.BuildChain(ctx, mustParse(t, "aaaaaaaaaaaaaaaa"))
	assert.ErrorIs(t, err, context.Canceled)
}
