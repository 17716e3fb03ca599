package content

import (
	"encoding/json"
	"fmt"

	"github.com/conorfennell/lessonseed/internal/domain"
)

// ActivitiesKey is the payload field the embedded activities are stored under.
const ActivitiesKey = "activities"

// Build returns the payload stored for a lesson: a shallow copy of base with
// the activities list injected when there is one. base is never modified, so
// the same template can back several lessons.
func Build(base map[string]any, activities []domain.Activity) map[string]any {
	payload := make(map[string]any, len(base)+1)
	for k, v := range base {
		payload[k] = v
	}
	if len(activities) > 0 {
		payload[ActivitiesKey] = activities
	}
	return payload
}

// Encode serializes a payload into the string form stored in the content column.
func Encode(payload map[string]any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode lesson content: %w", err)
	}
	return string(b), nil
}

// ForDefinition builds and encodes the payload for a lesson definition.
func ForDefinition(def domain.LessonDefinition) (string, error) {
	return Encode(Build(def.Content, def.Activities))
}
