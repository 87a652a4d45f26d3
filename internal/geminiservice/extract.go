package geminiservice

import "strings"

// payloadShape tells the extractor which JSON value to isolate.
type payloadShape int

const (
	shapeArray payloadShape = iota
	shapeObject
)

// extractJSON locates the JSON payload embedded in a free-text model reply.
// The model is instructed to emit ONLY JSON, but it is not a reliable JSON
// generator: replies regularly arrive wrapped in markdown code fences or with
// explanatory prose around them. Rather than trusting the output, we strip
// fence markers and take the substring from the first opening bracket to the
// last closing bracket of the expected shape. Never panics; a reply with no
// brackets comes back as a parse failure for the caller to fall back on.
func extractJSON(raw string, shape payloadShape) (string, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	opener, closer := "[", "]"
	if shape == shapeObject {
		opener, closer = "{", "}"
	}

	start := strings.Index(cleaned, opener)
	end := strings.LastIndex(cleaned, closer)
	if start == -1 || end == -1 || end < start {
		return "", newPipelineError(ErrParse, "no JSON %s found in model reply", shapeName(shape))
	}

	return cleaned[start : end+1], nil
}

func shapeName(shape payloadShape) string {
	if shape == shapeObject {
		return "object"
	}
	return "array"
}
