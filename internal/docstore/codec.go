package docstore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encode converts a bson-tagged struct into Fields.
func Encode(v any) (Fields, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Fields(normalizeMap(raw)), nil
}

// DataTo decodes the document fields into a bson-tagged struct.
func (d Document) DataTo(v any) error {
	data, err := bson.Marshal(map[string]any(d.Fields))
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, v)
}

// normalizeValue turns bson container and date types into plain Go values so every
// backend sees the same shapes.
func normalizeValue(v any) any {
	switch typed := v.(type) {
	case primitive.DateTime:
		return typed.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(typed.T), 0).UTC()
	case bson.M:
		return normalizeMap(typed)
	case map[string]any:
		return normalizeMap(typed)
	case bson.D:
		out := make(map[string]any, len(typed))
		for _, elem := range typed {
			out[elem.Key] = normalizeValue(elem.Value)
		}
		return out
	case bson.A:
		return normalizeSlice(typed)
	case []any:
		return normalizeSlice(typed)
	case int32:
		return int64(typed)
	case int:
		return int64(typed)
	default:
		return v
	}
}

func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeSlice(in []any) []any {
	out := make([]any, len(in))
	for i, value := range in {
		out[i] = normalizeValue(value)
	}
	return out
}

func cloneFields(in Fields) Fields {
	if in == nil {
		return Fields{}
	}
	return Fields(normalizeMap(in))
}
