// Package protocol holds the wire-format helpers shared by the server
// handler and the client: Upload-Metadata header encode/decode.
package protocol

import (
	"encoding/base64"
	"strings"

	"tusflow/internal/domain/entities"
)

// ParseMetadataHeader decodes a comma-separated "key base64(value)"
// Upload-Metadata header into a plain string map. Malformed or
// non-base64 pairs are silently dropped.
func ParseMetadataHeader(header string) map[string]string {
	meta := make(map[string]string)

	for _, element := range strings.Split(header, ",") {
		element = strings.TrimSpace(element)
		if element == "" {
			continue
		}

		parts := strings.Split(element, " ")
		if len(parts) > 2 {
			continue
		}

		key := parts[0]
		if key == "" {
			continue
		}

		value := ""
		if len(parts) == 2 {
			dec, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				continue
			}
			value = string(dec)
		}

		meta[key] = value
	}

	return meta
}

// SerializeMetadataHeader encodes a plain string map into the
// Upload-Metadata wire format.
func SerializeMetadataHeader(meta map[string]string) string {
	pairs := make([]string, 0, len(meta))
	for key, value := range meta {
		pairs = append(pairs, key+" "+base64.StdEncoding.EncodeToString([]byte(value)))
	}
	return strings.Join(pairs, ",")
}

// ToUploadMetadata maps the decoded Upload-Metadata fields this system
// recognizes into entities.UploadMetadata. Unrecognized keys are
// ignored.
func ToUploadMetadata(meta map[string]string) entities.UploadMetadata {
	return entities.UploadMetadata{
		Filename:         meta["filename"],
		Filetype:         meta["filetype"],
		WithFilename:     meta["withFilename"],
		OnDuplicate:      meta["onDuplicate"],
		DestinationPath:  meta["destinationPath"],
		MultipartID:      meta["multipartId"],
		PartIndex:        meta["partIndex"],
		TotalParts:       meta["totalParts"],
		OriginalFileSize: meta["originalFileSize"],
	}
}

// FromUploadMetadata is the inverse of ToUploadMetadata, used
// client-side to build the header for a new session.
func FromUploadMetadata(m entities.UploadMetadata) map[string]string {
	out := map[string]string{
		"filename":        m.Filename,
		"filetype":        m.Filetype,
		"withFilename":    m.WithFilename,
		"onDuplicate":     m.OnDuplicate,
		"destinationPath": m.DestinationPath,
	}
	if m.MultipartID != "" {
		out["multipartId"] = m.MultipartID
		out["partIndex"] = m.PartIndex
		out["totalParts"] = m.TotalParts
		out["originalFileSize"] = m.OriginalFileSize
	}
	return out
}
