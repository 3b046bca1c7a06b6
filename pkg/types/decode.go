package types

import (
	"encoding/json"
	"fmt"
)

// Decode parses a shipped document and returns a pointer to the struct for
// its eventName, e.g. *GCHeapSummary for "jdk.GCHeapSummary".
func Decode(data []byte) (any, error) {
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("types: decode meta: %w", err)
	}

	var doc any
	switch meta.EventName {
	case KindGCPhasePause:
		doc = &GCPhasePause{}
	case KindPromotionFailed:
		doc = &PromotionFailed{}
	case KindEvacuationFailed:
		doc = &EvacuationFailed{}
	case KindConcurrentModeFailure:
		doc = &ConcurrentModeFailure{}
	case KindMetaspaceOOM:
		doc = &MetaspaceOOM{}
	case KindGCHeapSummary:
		doc = &GCHeapSummary{}
	case KindMetaspaceSummary:
		doc = &MetaspaceSummary{}
	case KindGarbageCollection:
		doc = &GarbageCollection{}
	default:
		return nil, fmt.Errorf("types: unknown eventName %q", meta.EventName)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("types: decode %s: %w", meta.EventName, err)
	}
	return doc, nil
}
