package checkpoint

import (
	"bytes"
	"crypto/sha256"
)

// Hashing follows RFC 9162: leaves are prefixed with 0x00, interior nodes
// with 0x01, and the empty tree hashes the empty string.

func emptyRoot() []byte {
	sum := sha256.Sum256(nil)
	return sum[:]
}

func hashLeaf(entry []byte) []byte {
	hasher := sha256.New()
	hasher.Write([]byte{0x00})
	hasher.Write(entry)
	return hasher.Sum(nil)
}

func hashNode(left, right []byte) []byte {
	hasher := sha256.New()
	hasher.Write([]byte{0x01})
	hasher.Write(left)
	hasher.Write(right)
	return hasher.Sum(nil)
}

// treeRoot computes the root over already hashed leaves.
func treeRoot(leafHashes [][]byte) []byte {
	switch len(leafHashes) {
	case 0:
		return emptyRoot()
	case 1:
		return leafHashes[0]
	}
	split := splitPoint(len(leafHashes))
	return hashNode(treeRoot(leafHashes[:split]), treeRoot(leafHashes[split:]))
}

// auditPath lists the sibling hashes from leaf index up to the root.
func auditPath(leafHashes [][]byte, index int) [][]byte {
	if len(leafHashes) <= 1 {
		return nil
	}
	split := splitPoint(len(leafHashes))
	if index < split {
		return append(auditPath(leafHashes[:split], index), treeRoot(leafHashes[split:]))
	}
	return append(auditPath(leafHashes[split:], index-split), treeRoot(leafHashes[:split]))
}

func verifyPath(leafIndex, treeSize uint64, leafHash []byte, path [][]byte, root []byte) bool {
	if treeSize == 0 || leafIndex >= treeSize {
		return false
	}

	fn := leafIndex
	sn := treeSize - 1
	current := leafHash
	for _, sibling := range path {
		if sn == 0 {
			return false
		}
		if fn&1 == 1 || fn == sn {
			current = hashNode(sibling, current)
			for fn&1 == 0 && fn != 0 {
				fn >>= 1
				sn >>= 1
			}
		} else {
			current = hashNode(current, sibling)
		}
		fn >>= 1
		sn >>= 1
	}
	return sn == 0 && bytes.Equal(current, root)
}

// splitPoint is the largest power of two strictly below size.
func splitPoint(size int) int {
	split := 1
	for split<<1 < size {
		split <<= 1
	}
	return split
}
