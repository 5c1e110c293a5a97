package checkpoint

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

const (
	adminAccount nestable.Account    = "0.0.1001"
	aliceAccount nestable.Account    = "0.0.2002"
	filmsID      nestable.RegistryID = "0.0.5001"
)

func buildSnapshot(t *testing.T, films int) (*nestable.Registry, nestable.Snapshot) {
	t.Helper()
	ctx := context.Background()
	directory := nestable.NewDirectory(nestable.DirectoryOptions{})
	registry, err := nestable.NewRegistry(directory, string(filmsID), nestable.Config{
		Name:   "Films",
		Symbol: "FLM",
		Admin:  adminAccount,
	})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	if films > 0 {
		if _, err := registry.Mint(ctx, adminAccount, aliceAccount, films); err != nil {
			t.Fatalf("failed to mint: %v", err)
		}
	}
	if _, err := registry.AddAssetEntry(ctx, adminAccount, "ipfs://poster"); err != nil {
		t.Fatalf("failed to add asset entry: %v", err)
	}
	snapshot, err := registry.Snapshot(ctx)
	if err != nil {
		t.Fatalf("failed to snapshot: %v", err)
	}
	return registry, snapshot
}

func TestEmptyRootVector(t *testing.T) {
	rootHex := hex.EncodeToString(emptyRoot())
	expected := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if rootHex != expected {
		t.Fatalf("unexpected empty root: %s", rootHex)
	}
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	encoded, err := Canonicalize(map[string]any{"b": 1, "a": []any{true, nil, "x"}})
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if string(encoded) != `{"a":[true,null,"x"],"b":1}` {
		t.Fatalf("unexpected canonical form: %s", encoded)
	}
}

func TestBuildTracksState(t *testing.T) {
	registry, first := buildSnapshot(t, 3)
	checkpoint, err := Build(first)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if checkpoint.TokenCount != 3 || checkpoint.AssetCount != 1 || checkpoint.Registry != filmsID {
		t.Fatalf("unexpected checkpoint: %+v", checkpoint)
	}

	again, err := Build(first)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if again != checkpoint {
		t.Fatalf("build is not deterministic: %+v vs %+v", again, checkpoint)
	}

	if err := registry.Transfer(context.Background(), aliceAccount, 2, adminAccount); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	second, err := registry.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	moved, err := Build(second)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if moved.Root == checkpoint.Root {
		t.Fatalf("expected root to change after a transfer")
	}

	if _, err := Build(nestable.Snapshot{}); err == nil {
		t.Fatalf("expected error for a snapshot without registry")
	}
}

func TestProveTokenVerifiesForEveryLeaf(t *testing.T) {
	for _, films := range []int{1, 2, 3, 5, 8, 13} {
		_, snapshot := buildSnapshot(t, films)
		checkpoint, err := Build(snapshot)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		for id := 1; id <= films; id++ {
			proof, err := ProveToken(snapshot, nestable.TokenID(id))
			if err != nil {
				t.Fatalf("prove %d of %d failed: %v", id, films, err)
			}
			if proof.Root != checkpoint.Root {
				t.Fatalf("proof root %s differs from checkpoint root %s", proof.Root, checkpoint.Root)
			}
			ok, err := VerifyInclusion(proof)
			if err != nil {
				t.Fatalf("verify %d of %d returned error: %v", id, films, err)
			}
			if !ok {
				t.Fatalf("proof for token %d of %d does not verify", id, films)
			}

			proof.LeafIndex = (proof.LeafIndex + 1) % proof.TreeSize
			ok, err = VerifyInclusion(proof)
			if err != nil {
				t.Fatalf("verify returned error: %v", err)
			}
			if ok {
				t.Fatalf("proof for token %d verified at the wrong index", id)
			}
		}
	}

	_, snapshot := buildSnapshot(t, 1)
	if _, err := ProveToken(snapshot, 9); err == nil {
		t.Fatalf("expected error for an unknown token")
	}
}

func TestSignAndVerify(t *testing.T) {
	_, snapshot := buildSnapshot(t, 2)
	checkpoint, err := Build(snapshot)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	key, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	signed, err := Sign(checkpoint, key, "0.0.1001")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if err := Verify(signed, key.PublicKey()); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	tampered := signed
	tampered.Checkpoint.Generation++
	if err := Verify(tampered, key.PublicKey()); err == nil {
		t.Fatalf("expected tampered checkpoint to fail verification")
	}

	other, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	if err := Verify(signed, other.PublicKey()); err == nil {
		t.Fatalf("expected verification with another key to fail")
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	_, snapshot := buildSnapshot(t, 4)

	var buffer bytes.Buffer
	written, err := WriteArchive(&buffer, snapshot)
	if err != nil {
		t.Fatalf("write archive failed: %v", err)
	}

	archive, err := ReadArchive(bytes.NewReader(buffer.Bytes()))
	if err != nil {
		t.Fatalf("read archive failed: %v", err)
	}
	if archive.Checkpoint != written {
		t.Fatalf("checkpoint mismatch: %+v vs %+v", archive.Checkpoint, written)
	}

	restored, err := nestable.RestoreRegistry(nestable.NewDirectory(nestable.DirectoryOptions{}), archive.Snapshot)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	owner, err := restored.OwnerOf(context.Background(), 4)
	if err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if owner != aliceAccount {
		t.Fatalf("unexpected owner %s", owner)
	}
}

func TestReadArchiveRejectsTampering(t *testing.T) {
	_, snapshot := buildSnapshot(t, 2)
	checkpoint, err := Build(snapshot)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	snapshot.Tokens[0].DirectOwner = nestable.AccountOwner(adminAccount)

	var buffer bytes.Buffer
	compressor := brotli.NewWriter(&buffer)
	if err := json.NewEncoder(compressor).Encode(Archive{Format: ArchiveFormat, Checkpoint: checkpoint, Snapshot: snapshot}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := compressor.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err = ReadArchive(&buffer)
	if err == nil || !strings.Contains(err.Error(), "does not match its checkpoint") {
		t.Fatalf("expected checkpoint mismatch, got %v", err)
	}
}
