package source

import (
	"encoding/json"
	"fmt"

	"ChainHarvest/internal/model"
)

// Decoder turns one raw checkpoint blob into its summary and extracted
// events. Protocol-specific binary formats plug in here; the shipped
// implementation handles the JSON checkpoint representation.
type Decoder interface {
	Decode(blob []byte) (model.CheckpointSummary, []model.Event, error)
}

// JSONDecoder decodes checkpoints serialized as a JSON object with "summary"
// and "events" fields, the same wire shape the relay publishes.
type JSONDecoder struct{}

func (JSONDecoder) Decode(blob []byte) (model.CheckpointSummary, []model.Event, error) {
	var batch model.EventBatch
	if err := json.Unmarshal(blob, &batch); err != nil {
		return model.CheckpointSummary{}, nil, fmt.Errorf("failed to decode checkpoint JSON: %w", err)
	}
	return batch.Summary, batch.Events, nil
}
