package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/sqlparse"
)

// Fingerprints computes the configuration fingerprint of every node.
// Documentation fields (descriptions) and the model file location are
// excluded; everything that affects behavior is included.
func Fingerprints(cfg *config.Config) map[string]string {
	fps := make(map[string]string, len(cfg.Adapters)+len(cfg.Models))
	for name, a := range cfg.Adapters {
		fps[name] = AdapterFingerprint(a)
	}
	for name, m := range cfg.Models {
		fps[name] = ModelFingerprint(m)
	}
	return fps
}

// AdapterFingerprint hashes an adapter's behavior-affecting fields:
// connection, source descriptor, ordered column list, format options,
// limits, and the ingestion lower bound.
func AdapterFingerprint(a config.AdapterConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "adapter\x00conn=%s\x00since=%s\x00", a.Connection, a.RangeSince)
	switch {
	case a.Source.File != nil:
		f := a.Source.File
		fmt.Fprintf(h, "file\x00path=%s\x00compression=%s\x00batch=%d\x00",
			f.Path, f.Compression, f.MaxBatchSize)
		fmt.Fprintf(h, "format=%s\x00delim=%s\x00null=%s\x00header=%s\x00",
			f.Format.Kind, f.Format.Delimiter, f.Format.NullValue, boolPtrKey(f.Format.HasHeader))
	case a.Source.Database != nil:
		fmt.Fprintf(h, "database\x00table=%s\x00", a.Source.Database.Table)
	}
	for _, c := range a.Columns {
		fmt.Fprintf(h, "col=%s:%s\x00", c.Name, c.Type)
	}
	if a.Limits != nil {
		fmt.Fprintf(h, "limits=%d:%s\x00", a.Limits.MaxFiles, a.Limits.MaxSize)
	}
	return sum(h)
}

// ModelFingerprint hashes the normalized SQL text and max_age. Layout
// and comment changes in the SQL do not count as modifications.
func ModelFingerprint(m config.ModelConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "model\x00sql=%s\x00max_age=%s\x00", sqlparse.Normalize(m.SQL), m.MaxAge)
	return sum(h)
}

func sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

func boolPtrKey(b *bool) string {
	if b == nil {
		return "default"
	}
	return fmt.Sprintf("%t", *b)
}
