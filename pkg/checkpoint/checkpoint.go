package checkpoint

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

// TokenLeaves returns the canonical encoding of every token in the
// snapshot, burned ids included, in id order.
func TokenLeaves(snapshot nestable.Snapshot) ([][]byte, error) {
	leaves := make([][]byte, 0, len(snapshot.Tokens))
	for index, token := range snapshot.Tokens {
		if token.ID != nestable.TokenID(index+1) {
			return nil, fmt.Errorf("snapshot token %d is out of order at position %d", token.ID, index)
		}
		leaf, err := Canonicalize(tokenLeaf{Kind: "token", Registry: snapshot.Registry, Token: token})
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// leaves orders tokens first so a token's leaf index is its id minus one,
// then catalog entries, then the registry header.
func leaves(snapshot nestable.Snapshot) ([][]byte, error) {
	all, err := TokenLeaves(snapshot)
	if err != nil {
		return nil, err
	}
	for _, asset := range snapshot.Assets {
		leaf, err := Canonicalize(assetLeaf{Kind: "asset", Registry: snapshot.Registry, Asset: asset})
		if err != nil {
			return nil, err
		}
		all = append(all, leaf)
	}
	header, err := Canonicalize(headerLeaf{
		Kind:         "header",
		Registry:     snapshot.Registry,
		Config:       snapshot.Config,
		Contributors: snapshot.Contributors,
		Operators:    snapshot.Operators,
	})
	if err != nil {
		return nil, err
	}
	return append(all, header), nil
}

func leafHashes(snapshot nestable.Snapshot) ([][]byte, error) {
	encoded, err := leaves(snapshot)
	if err != nil {
		return nil, err
	}
	hashes := make([][]byte, 0, len(encoded))
	for _, leaf := range encoded {
		hashes = append(hashes, hashLeaf(leaf))
	}
	return hashes, nil
}

// Build computes the checkpoint of a snapshot.
func Build(snapshot nestable.Snapshot) (Checkpoint, error) {
	if strings.TrimSpace(string(snapshot.Registry)) == "" {
		return Checkpoint{}, fmt.Errorf("snapshot registry is required")
	}
	hashes, err := leafHashes(snapshot)
	if err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{
		Registry:   snapshot.Registry,
		Generation: snapshot.Generation,
		TokenCount: len(snapshot.Tokens),
		AssetCount: len(snapshot.Assets),
		Root:       base64.StdEncoding.EncodeToString(treeRoot(hashes)),
	}, nil
}

// ProveToken builds an inclusion proof for one token of the snapshot.
func ProveToken(snapshot nestable.Snapshot, tokenID nestable.TokenID) (InclusionProof, error) {
	if tokenID == 0 || int(tokenID) > len(snapshot.Tokens) {
		return InclusionProof{}, nestable.NewUnknownTokenError(snapshot.Registry, tokenID)
	}
	hashes, err := leafHashes(snapshot)
	if err != nil {
		return InclusionProof{}, err
	}

	index := int(tokenID) - 1
	path := auditPath(hashes, index)
	encodedPath := make([]string, 0, len(path))
	for _, sibling := range path {
		encodedPath = append(encodedPath, base64.StdEncoding.EncodeToString(sibling))
	}
	return InclusionProof{
		TokenID:   tokenID,
		LeafIndex: uint64(index),
		TreeSize:  uint64(len(hashes)),
		LeafHash:  hex.EncodeToString(hashes[index]),
		Path:      encodedPath,
		Root:      base64.StdEncoding.EncodeToString(treeRoot(hashes)),
	}, nil
}

// VerifyInclusion checks a proof against its own root. Callers compare
// proof.Root with a checkpoint they trust.
func VerifyInclusion(proof InclusionProof) (bool, error) {
	leafHash, err := hex.DecodeString(strings.TrimSpace(proof.LeafHash))
	if err != nil {
		return false, fmt.Errorf("leaf hash must be valid hex: %w", err)
	}
	root, err := base64.StdEncoding.DecodeString(proof.Root)
	if err != nil {
		return false, fmt.Errorf("root must be valid base64: %w", err)
	}
	path := make([][]byte, 0, len(proof.Path))
	for _, node := range proof.Path {
		sibling, err := base64.StdEncoding.DecodeString(node)
		if err != nil {
			return false, fmt.Errorf("path element must be valid base64: %w", err)
		}
		path = append(path, sibling)
	}
	return verifyPath(proof.LeafIndex, proof.TreeSize, leafHash, path, root), nil
}

// Sign signs the canonical encoding of checkpoint with key.
func Sign(checkpoint Checkpoint, key hedera.PrivateKey, signer string) (SignedCheckpoint, error) {
	message, err := Canonicalize(checkpoint)
	if err != nil {
		return SignedCheckpoint{}, err
	}
	return SignedCheckpoint{
		Checkpoint: checkpoint,
		Signer:     strings.TrimSpace(signer),
		PublicKey:  key.PublicKey().String(),
		Signature:  base64.StdEncoding.EncodeToString(key.Sign(message)),
	}, nil
}

// Verify checks the signature of signed against publicKey. The embedded
// PublicKey field is informational and never trusted.
func Verify(signed SignedCheckpoint, publicKey hedera.PublicKey) error {
	message, err := Canonicalize(signed.Checkpoint)
	if err != nil {
		return err
	}
	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signed.Signature))
	if err != nil {
		return fmt.Errorf("signature must be valid base64: %w", err)
	}
	if !publicKey.Verify(message, signature) {
		return fmt.Errorf("checkpoint signature for %s at generation %d does not verify", signed.Checkpoint.Registry, signed.Checkpoint.Generation)
	}
	return nil
}
