package checkpoint

import "github.com/bookmart/nestable-sdk-go/pkg/nestable"

const (
	ArchiveFormat = "nestable-archive/1"

	// MaxArchiveBytes bounds the decompressed size ReadArchive accepts.
	MaxArchiveBytes = 64 << 20
)

// Checkpoint commits to the full state of one registry at a generation.
// Root is the base64 merkle root over the registry's leaves.
type Checkpoint struct {
	Registry   nestable.RegistryID `json:"registry"`
	Generation uint64              `json:"generation"`
	TokenCount int                 `json:"tokenCount"`
	AssetCount int                 `json:"assetCount"`
	Root       string              `json:"root"`
}

// SignedCheckpoint carries a checkpoint with the operator signature over
// its canonical encoding.
type SignedCheckpoint struct {
	Checkpoint Checkpoint `json:"checkpoint"`
	Signer     string     `json:"signer,omitempty"`
	PublicKey  string     `json:"publicKey"`
	Signature  string     `json:"signature"`
}

// InclusionProof shows one token leaf is part of a checkpoint root.
type InclusionProof struct {
	TokenID   nestable.TokenID `json:"tokenId"`
	LeafIndex uint64           `json:"leafIndex"`
	TreeSize  uint64           `json:"treeSize"`
	LeafHash  string           `json:"leafHash"`
	Path      []string         `json:"path"`
	Root      string           `json:"root"`
}

// Archive is the decoded content of a snapshot archive.
type Archive struct {
	Format     string            `json:"format"`
	Checkpoint Checkpoint        `json:"checkpoint"`
	Snapshot   nestable.Snapshot `json:"snapshot"`
}

type tokenLeaf struct {
	Kind     string                 `json:"kind"`
	Registry nestable.RegistryID    `json:"registry"`
	Token    nestable.TokenSnapshot `json:"token"`
}

type assetLeaf struct {
	Kind     string                      `json:"kind"`
	Registry nestable.RegistryID         `json:"registry"`
	Asset    nestable.AssetEntrySnapshot `json:"asset"`
}

type headerLeaf struct {
	Kind         string                      `json:"kind"`
	Registry     nestable.RegistryID         `json:"registry"`
	Config       nestable.Config             `json:"config"`
	Contributors []nestable.Account          `json:"contributors,omitempty"`
	Operators    []nestable.OperatorSnapshot `json:"operators,omitempty"`
}
