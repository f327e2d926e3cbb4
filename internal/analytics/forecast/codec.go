package forecast

import (
	"encoding/json"
	"fmt"
)

// envelope tags a serialized model with its family
type envelope struct {
	Kind  Kind            `json:"kind"`
	State json.RawMessage `json:"state"`
}

// MarshalModel serializes a fitted model, including everything Predict needs.
func MarshalModel(m Model) ([]byte, error) {
	switch m.(type) {
	case *SARIMAModel, *HoltWintersModel:
	default:
		return nil, fmt.Errorf("unsupported model type %T", m)
	}

	state, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s state: %w", m.Kind(), err)
	}
	return json.Marshal(envelope{Kind: m.Kind(), State: state})
}

// UnmarshalModel restores a model written by MarshalModel
func UnmarshalModel(data []byte) (Model, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode model envelope: %w", err)
	}

	var model Model
	switch env.Kind {
	case KindSeasonalARIMA:
		model = &SARIMAModel{}
	case KindExponentialSmoothing:
		model = &HoltWintersModel{}
	default:
		return nil, fmt.Errorf("unknown model kind: %q", env.Kind)
	}

	if err := json.Unmarshal(env.State, model); err != nil {
		return nil, fmt.Errorf("failed to decode %s state: %w", env.Kind, err)
	}
	return model, nil
}
