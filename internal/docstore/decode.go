package docstore

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var timeType = reflect.TypeOf(time.Time{})

// Decode copies doc into out, a pointer to a struct with mapstructure tags.
// The document id is exposed as the "id" field unless the document carries
// its own. Numeric strings and numbers are converted weakly, and timestamps
// may arrive either as time.Time or RFC 3339 strings.
func Decode(doc Document, out any) error {
	input := make(map[string]any, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		input[k] = v
	}
	if _, ok := input["id"]; !ok {
		input["id"] = doc.ID
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(timeHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	return nil
}

// timeHook turns strings into time.Time. An empty string is the zero time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp %q", v)
	}
	return data, nil
}
