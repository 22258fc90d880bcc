package baseline

// envelopeSchema is the minimal JSON Schema the loader validates a
// baseline file against before integrity-hash verification. gojsonschema
// validates only the top-level baseline envelope, not the recursive
// InferredSchema payloads nested inside it.
const envelopeSchema = `{
  "type": "object",
  "required": ["version", "createdAt", "serverCommand", "server", "tools", "integrityHash"],
  "properties": {
    "version": {"type": "string"},
    "createdAt": {"type": "string"},
    "serverCommand": {"type": "string"},
    "server": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string"},
        "version": {"type": "string"},
        "protocolVersion": {"type": "string"},
        "capabilities": {"type": "array"}
      }
    },
    "tools": {"type": "array"},
    "summary": {"type": "string"},
    "assertions": {"type": "array"},
    "integrityHash": {"type": "string"}
  }
}`
