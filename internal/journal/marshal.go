package journal

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/earshot/internal/trace"
)

func marshalArgs(args map[string]any) (string, error) {
	data, err := trace.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs decodes stored args. Numbers come back as float64; an
// empty object comes back as nil to match calls recorded without args.
func unmarshalArgs(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return out, nil
}

func marshalBanks(banks []string) (string, error) {
	if banks == nil {
		banks = []string{}
	}
	data, err := trace.MarshalCanonical(banks)
	if err != nil {
		return "", fmt.Errorf("marshal banks: %w", err)
	}
	return string(data), nil
}

func unmarshalBanks(data string) ([]string, error) {
	out := []string{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal banks: %w", err)
	}
	return out, nil
}
