package rhi

import (
	"hash/fnv"
	"sort"
)

// LayoutHash is the cache key produced by HashBindGroupLayout and
// HashPipelineLayout.
type LayoutHash uint64

// HashBindGroupLayout derives a cache key from a BindGroupLayoutDesc's
// bindings only (index, kind, count, visible-stages), ignoring Label,
// so two descriptors that differ only in name collapse to the same
// cached driver object and any difference in a binding field produces
// a distinct key.
func HashBindGroupLayout(desc BindGroupLayoutDesc) LayoutHash {
	bindings := append([]BindGroupLayoutBinding(nil), desc.Bindings...)
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].Index < bindings[j].Index })

	h := fnv.New64a()
	for _, b := range bindings {
		writeUint32(h, b.Index)
		writeUint32(h, uint32(b.Kind))
		writeUint32(h, b.Count)
		writeUint32(h, uint32(b.Visible))
	}
	return LayoutHash(h.Sum64())
}

// HashPipelineLayout derives a cache key for a PipelineLayoutDesc from
// the hashes of its BindGroupLayouts (by handle identity, since a
// BindGroupLayout is already cached by content) plus its push-constant
// ranges.
func HashPipelineLayout(desc PipelineLayoutDesc) LayoutHash {
	h := fnv.New64a()
	for _, bgl := range desc.BindGroupLayouts {
		writeUint32(h, bgl.Index)
		writeUint32(h, bgl.Generation)
	}
	for _, pc := range desc.PushConstantRanges {
		writeUint32(h, pc.Offset)
		writeUint32(h, pc.Size)
		writeUint32(h, uint32(pc.Visible))
	}
	return LayoutHash(h.Sum64())
}

func writeUint32(h interface{ Write([]byte) (int, error) }, v uint32) {
	h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// layoutCacheKey pairs a content hash with the HandleKind it was
// computed for, so a BindGroupLayout and a PipelineLayout that happen
// to hash to the same value (e.g. both empty) never collide.
type layoutCacheKey struct {
	kind HandleKind
	hash LayoutHash
}

// LayoutCache maps a (kind, content hash) pair to an already-created
// driver object handle, so identical layouts resolve to the same
// cached object instead of being recreated on every pipeline build.
type LayoutCache struct {
	entries map[layoutCacheKey]Handle
}

// NewLayoutCache constructs an empty cache.
func NewLayoutCache() *LayoutCache {
	return &LayoutCache{entries: map[layoutCacheKey]Handle{}}
}

// Lookup returns the cached handle for (kind, hash), if any.
func (c *LayoutCache) Lookup(kind HandleKind, hash LayoutHash) (Handle, bool) {
	h, ok := c.entries[layoutCacheKey{kind: kind, hash: hash}]
	return h, ok
}

// Store records handle as the cached object for (kind, hash).
func (c *LayoutCache) Store(kind HandleKind, hash LayoutHash, handle Handle) {
	c.entries[layoutCacheKey{kind: kind, hash: hash}] = handle
}
