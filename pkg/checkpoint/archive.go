package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

// WriteArchive writes snapshot and its checkpoint as brotli-compressed
// JSON and returns the checkpoint.
func WriteArchive(writer io.Writer, snapshot nestable.Snapshot) (Checkpoint, error) {
	checkpoint, err := Build(snapshot)
	if err != nil {
		return Checkpoint{}, err
	}

	compressor := brotli.NewWriterLevel(writer, brotli.BestCompression)
	encoder := json.NewEncoder(compressor)
	if err := encoder.Encode(Archive{Format: ArchiveFormat, Checkpoint: checkpoint, Snapshot: snapshot}); err != nil {
		_ = compressor.Close()
		return Checkpoint{}, fmt.Errorf("failed to encode archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to flush archive: %w", err)
	}
	return checkpoint, nil
}

// ReadArchive decodes an archive and rejects it when the snapshot does not
// hash to the recorded checkpoint.
func ReadArchive(reader io.Reader) (Archive, error) {
	decompressed, err := io.ReadAll(io.LimitReader(brotli.NewReader(reader), MaxArchiveBytes+1))
	if err != nil {
		return Archive{}, fmt.Errorf("failed to decompress archive: %w", err)
	}
	if len(decompressed) > MaxArchiveBytes {
		return Archive{}, fmt.Errorf("archive exceeds %d bytes", MaxArchiveBytes)
	}

	var archive Archive
	if err := json.Unmarshal(decompressed, &archive); err != nil {
		return Archive{}, fmt.Errorf("failed to decode archive: %w", err)
	}
	if archive.Format != ArchiveFormat {
		return Archive{}, fmt.Errorf("unsupported archive format %q", archive.Format)
	}

	recomputed, err := Build(archive.Snapshot)
	if err != nil {
		return Archive{}, err
	}
	if recomputed != archive.Checkpoint {
		return Archive{}, fmt.Errorf(
			"archive for %s does not match its checkpoint: root %s, recorded %s",
			archive.Snapshot.Registry,
			recomputed.Root,
			archive.Checkpoint.Root,
		)
	}
	return archive, nil
}
