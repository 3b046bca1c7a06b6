package encoder

import "github.com/obsidianstack/gcshipper/pkg/types"

// extractor builds the document for one event kind.
type extractor func(types.Meta, *fields) any

var extractors = map[string]extractor{
	types.KindGCPhasePause:          gcPhasePause,
	types.KindPromotionFailed:       promotionFailed,
	types.KindEvacuationFailed:      evacuationFailed,
	types.KindConcurrentModeFailure: concurrentModeFailure,
	types.KindMetaspaceOOM:          metaspaceOOM,
	types.KindGCHeapSummary:         gcHeapSummary,
	types.KindMetaspaceSummary:      metaspaceSummary,
	types.KindGarbageCollection:     garbageCollection,
}

func gcPhasePause(m types.Meta, f *fields) any {
	return &types.GCPhasePause{
		Meta:     m,
		Duration: f.duration(),
		GCID:     f.long("gcId"),
		Name:     f.str("name"),
	}
}

func promotionFailed(m types.Meta, f *fields) any {
	return &types.PromotionFailed{
		Meta:            m,
		GCID:            f.long("gcId"),
		PromotionFailed: f.copyFailed("promotionFailed"),
		Thread:          f.thread("thread"),
	}
}

func evacuationFailed(m types.Meta, f *fields) any {
	return &types.EvacuationFailed{
		Meta:             m,
		GCID:             f.long("gcId"),
		EvacuationFailed: f.copyFailed("evacuationFailed"),
	}
}

func concurrentModeFailure(m types.Meta, f *fields) any {
	return &types.ConcurrentModeFailure{Meta: m, GCID: f.long("gcId")}
}

func metaspaceOOM(m types.Meta, f *fields) any {
	return &types.MetaspaceOOM{
		Meta:                m,
		ClassLoader:         f.classLoader("classLoader"),
		HiddenClassLoader:   f.boolean("hiddenClassLoader"),
		Size:                f.long("size"),
		MetadataType:        f.str("metadataType"),
		MetaspaceObjectType: f.str("metaspaceObjectType"),
		StackTrace:          f.stackTrace(),
	}
}

func gcHeapSummary(m types.Meta, f *fields) any {
	return &types.GCHeapSummary{
		Meta: m,
		GCID: f.long("gcId"),
		When: f.str("when"),
		HeapSpace: types.HeapSpace{
			CommittedSize: f.long("heapSpace.committedSize"),
			ReservedSize:  f.long("heapSpace.reservedSize"),
		},
		HeapUsed: f.long("heapUsed"),
	}
}

func metaspaceSummary(m types.Meta, f *fields) any {
	return &types.MetaspaceSummary{
		Meta:        m,
		GCID:        f.long("gcId"),
		When:        f.str("when"),
		GCThreshold: f.long("gcThreshold"),
		Metaspace:   f.metaspaceSizes("metaspace"),
		DataSpace:   f.metaspaceSizes("dataSpace"),
		ClassSpace:  f.metaspaceSizes("classSpace"),
	}
}

func garbageCollection(m types.Meta, f *fields) any {
	return &types.GarbageCollection{
		Meta:         m,
		Duration:     f.duration(),
		GCID:         f.long("gcId"),
		Name:         f.str("name"),
		Cause:        f.str("cause"),
		SumOfPauses:  f.long("sumOfPauses"),
		LongestPause: f.long("longestPause"),
	}
}
