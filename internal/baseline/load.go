package baseline

import (
	"encoding/json"
	"fmt"

	"github.com/blackcoderx/mcpwatch/internal/store"
	"github.com/xeipuuv/gojsonschema"
)

// LoadOptions controls Load's strictness.
type LoadOptions struct {
	// AllowIntegrityMismatch, when true, returns a mismatched baseline
	// instead of erroring. Loaders reject mismatches by default; this is
	// the explicit opt-out.
	AllowIntegrityMismatch bool
}

// migrationStep transforms a raw baseline document of one version into
// the next version's shape; migrating always invalidates the stored hash,
// so migrated documents are re-sealed by Load.
type migrationStep struct {
	fromVersion string
	toVersion   string
	migrate     func(map[string]any) map[string]any
}

// migrations is the in-source forward-migration table, applied in order
// until the document reaches CurrentVersion. Registering a new version
// means appending one step here; nothing else in the loader changes.
var migrations = []migrationStep{
	{
		// The pre-1.0 format nested protocol version under "server.protocol"
		// and had no workflowSignatures slot.
		fromVersion: "0.1.0",
		toVersion:   "1.0.0",
		migrate: func(raw map[string]any) map[string]any {
			if server, ok := raw["server"].(map[string]any); ok {
				if proto, ok := server["protocol"]; ok {
					server["protocolVersion"] = proto
					delete(server, "protocol")
				}
			}
			if _, ok := raw["workflowSignatures"]; !ok {
				raw["workflowSignatures"] = []any{}
			}
			raw["version"] = "1.0.0"
			return raw
		},
	},
}

// applyMigrations walks raw forward through migrations starting at its
// declared version, returning the migrated document and whether any step
// ran.
func applyMigrations(raw map[string]any) (map[string]any, bool, error) {
	version, _ := raw["version"].(string)
	migrated := false

	for {
		if version == CurrentVersion {
			return raw, migrated, nil
		}
		var step *migrationStep
		for i := range migrations {
			if migrations[i].fromVersion == version {
				step = &migrations[i]
				break
			}
		}
		if step == nil {
			if migrated {
				return raw, migrated, nil
			}
			return raw, migrated, fmt.Errorf("baseline: unknown version %q and no migration path to %s", version, CurrentVersion)
		}
		raw = step.migrate(raw)
		version = step.toVersion
		migrated = true
	}
}

// validateEnvelope checks data's top-level shape against envelopeSchema
// before any integrity or business-logic inspection.
func validateEnvelope(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(envelopeSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("baseline.invalid_format: schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs string
		for i, e := range result.Errors() {
			if i > 0 {
				msgs += "; "
			}
			msgs += e.String()
		}
		return fmt.Errorf("baseline.invalid_format: %s", msgs)
	}
	return nil
}

// Load reads, validates, migrates, and integrity-checks the baseline at
// path.
func Load(path string, opts LoadOptions) (*BehavioralBaseline, error) {
	data, err := store.ReadBounded(path)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}

	if err := validateEnvelope(data); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("baseline.invalid_format: failed to parse JSON: %w", err)
	}

	raw, migrated, err := applyMigrations(raw)
	if err != nil {
		return nil, err
	}

	migratedData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("baseline: failed to re-marshal migrated document: %w", err)
	}

	var b BehavioralBaseline
	if err := json.Unmarshal(migratedData, &b); err != nil {
		return nil, fmt.Errorf("baseline.invalid_format: %w", err)
	}

	if migrated {
		// Migration invalidates the old hash; recompute and seal.
		b, err = sealed(b)
		if err != nil {
			return nil, fmt.Errorf("baseline: failed to reseal migrated baseline: %w", err)
		}
		return &b, nil
	}

	ok, err := Verify(b)
	if err != nil {
		return nil, fmt.Errorf("baseline: failed to verify integrity hash: %w", err)
	}
	if !ok && !opts.AllowIntegrityMismatch {
		return nil, fmt.Errorf("baseline.integrity_mismatch: stored hash does not match recomputed hash for %s", path)
	}

	return &b, nil
}

// Save canonicalizes b, seals it with a fresh integrity hash, and writes
// it atomically to path.
func Save(path string, b BehavioralBaseline) error {
	sealedB, err := sealed(b)
	if err != nil {
		return fmt.Errorf("baseline: failed to seal baseline before save: %w", err)
	}

	data, err := json.MarshalIndent(sealedB, "", "  ")
	if err != nil {
		return fmt.Errorf("baseline: failed to marshal baseline: %w", err)
	}

	if err := store.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	return nil
}
