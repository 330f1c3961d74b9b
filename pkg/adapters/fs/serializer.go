package fs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PeterMedina/stakx/pkg/document"
)

// Serializer decodes a data file into a mapping.
type Serializer interface {
	Parse(raw []byte) (map[string]any, error)
}

// DefaultSerializers returns the standard set of data serializers, keyed by
// extension without the dot.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		"json": NewJSONSerializer(strict),
		"yaml": NewYAMLSerializer(strict),
		"yml":  NewYAMLSerializer(strict),
		"csv":  NewCSVSerializer(strict),
	}
}

// DecodeWith returns a document.DecodeFunc dispatching on the file extension.
func DecodeWith(serializers map[string]Serializer) document.DecodeFunc {
	return func(ext string, raw []byte) (map[string]any, error) {
		s, ok := serializers[strings.ToLower(ext)]
		if !ok {
			return nil, fmt.Errorf("no serializer registered for %q files", ext)
		}
		return s.Parse(raw)
	}
}

// IsDataFile reports whether ext names a format one of serializers can parse.
func IsDataFile(serializers map[string]Serializer, ext string) bool {
	_, ok := serializers[strings.ToLower(ext)]
	return ok
}

// --- JSON Serializer ---

// JSONSerializer reads JSON objects.
type JSONSerializer struct {
	// Strict keeps numbers as json.Number to avoid precision loss.
	Strict bool
}

func NewJSONSerializer(strict bool) *JSONSerializer {
	return &JSONSerializer{Strict: strict}
}

func (s *JSONSerializer) Parse(raw []byte) (map[string]any, error) {
	var payload map[string]any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if s.Strict {
		decoder.UseNumber()
	}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return payload, nil
}

// --- YAML Serializer ---

type YAMLSerializer struct {
	Strict bool
}

func NewYAMLSerializer(strict bool) *YAMLSerializer {
	return &YAMLSerializer{Strict: strict}
}

func (s *YAMLSerializer) Parse(raw []byte) (map[string]any, error) {
	var payload map[string]any
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if s.Strict {
		payload = recursiveNormalize(payload).(map[string]any)
	}
	return payload, nil
}

// --- CSV Serializer ---

// CSVSerializer reads the header and the first row of a CSV file as a single
// record. Further rows are ignored.
type CSVSerializer struct {
	Strict bool
}

func NewCSVSerializer(strict bool) *CSVSerializer {
	return &CSVSerializer{Strict: strict}
}

func (s *CSVSerializer) Parse(raw []byte) (map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	row, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv row: %w", err)
	}
	if len(row) != len(headers) {
		return nil, fmt.Errorf("csv row length mismatch: %d headers, %d values", len(headers), len(row))
	}

	payload := make(map[string]any, len(headers))
	for i, h := range headers {
		payload[strings.TrimSpace(h)] = UnmarshalCSVValue(strings.TrimSpace(row[i]), s.Strict)
	}
	if s.Strict {
		payload = recursiveNormalize(payload).(map[string]any)
	}
	return payload, nil
}

// UnmarshalCSVValue parses val as JSON when it looks like an object or a list.
// Otherwise val is returned as is.
//
// A plain string shaped like JSON (e.g. "[1, 2]") is therefore decoded.
func UnmarshalCSVValue(val string, strict bool) any {
	if (strings.HasPrefix(val, "{") && strings.HasSuffix(val, "}")) ||
		(strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]")) {
		var parsed any
		decoder := json.NewDecoder(strings.NewReader(val))
		if strict {
			decoder.UseNumber()
		}
		if err := decoder.Decode(&parsed); err == nil {
			return parsed
		}
	}
	return val
}

// recursiveNormalize converts numeric values to json.Number so YAML and CSV
// data compare equal to strict JSON data.
func recursiveNormalize(val any) any {
	switch v := val.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = recursiveNormalize(val)
		}
		return m
	case []any:
		l := make([]any, len(v))
		for i, val := range v {
			l[i] = recursiveNormalize(val)
		}
		return l
	case int:
		return json.Number(fmt.Sprintf("%d", v))
	case int64:
		return json.Number(fmt.Sprintf("%d", v))
	case float64:
		return json.Number(fmt.Sprintf("%v", v))
	default:
		return v
	}
}
