package nestable

// catalog is the append-only asset table of one registry. Entry n lives at
// index n-1.
type catalog struct {
	entries []string
}

func (assets *catalog) add(txn *transaction, reference string) AssetID {
	assets.entries = append(assets.entries, reference)
	length := len(assets.entries)
	txn.record(func() { assets.entries = assets.entries[:length-1] })
	return AssetID(length)
}

func (assets *catalog) reference(assetID AssetID) (string, bool) {
	if assetID == 0 || assetID > AssetID(len(assets.entries)) {
		return "", false
	}
	return assets.entries[assetID-1], true
}

func (assets *catalog) size() int {
	return len(assets.entries)
}
