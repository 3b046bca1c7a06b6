package types

// Event kind names. These identifiers come from the JDK Flight Recorder event
// taxonomy and must not be altered.
const (
	KindGCPhasePause          = "jdk.GCPhasePause"
	KindPromotionFailed       = "jdk.PromotionFailed"
	KindEvacuationFailed      = "jdk.EvacuationFailed"
	KindConcurrentModeFailure = "jdk.ConcurrentModeFailure"
	KindMetaspaceOOM          = "jdk.MetaspaceOOM"
	KindGCHeapSummary         = "jdk.GCHeapSummary"
	KindMetaspaceSummary      = "jdk.MetaspaceSummary"
	KindGarbageCollection     = "jdk.GarbageCollection"
)

// Kinds is the fixed, ordered set of event kinds the agent subscribes to.
var Kinds = []string{
	KindGCPhasePause,
	KindPromotionFailed,
	KindEvacuationFailed,
	KindConcurrentModeFailure,
	KindMetaspaceOOM,
	KindGCHeapSummary,
	KindMetaspaceSummary,
	KindGarbageCollection,
}

// Meta holds the fields present on every document.
type Meta struct {
	// StartTime is the event start as an ISO-8601 instant, e.g.
	// "2026-03-01T10:15:30.123Z".
	StartTime string `json:"startTime"`
	Host      string `json:"host"`
	EventName string `json:"eventName"`
	// Label is only present when the agent was configured with one.
	Label *string `json:"label,omitempty"`
}

// CopyFailed summarises objects that could not be promoted or evacuated.
type CopyFailed struct {
	ObjectCount  int64 `json:"objectCount"`
	FirstSize    int64 `json:"firstSize"`
	SmallestSize int64 `json:"smallestSize"`
	TotalSize    int64 `json:"totalSize"`
}

// Thread identifies the thread an event was recorded on.
type Thread struct {
	OSName       *string `json:"osName"`
	OSThreadID   int64   `json:"osThreadId"`
	JavaName     *string `json:"javaName"`
	JavaThreadID int64   `json:"javaThreadId"`
}

// ClassLoader identifies the loader involved in a metaspace allocation failure.
type ClassLoader struct {
	Type string  `json:"type"`
	Name *string `json:"name"`
}

// HeapSpace is the virtual space of the Java heap.
type HeapSpace struct {
	CommittedSize int64 `json:"committedSize"`
	ReservedSize  int64 `json:"reservedSize"`
}

// MetaspaceSizes is one of the three metaspace size breakdowns.
type MetaspaceSizes struct {
	Committed int64 `json:"committed"`
	Used      int64 `json:"used"`
	Reserved  int64 `json:"reserved"`
}

// GCPhasePause is a single stop-the-world GC phase.
type GCPhasePause struct {
	Meta
	// Duration is in milliseconds with fractional precision.
	Duration float64 `json:"duration"`
	GCID     int64   `json:"gcId"`
	Name     *string `json:"name"`
}

type PromotionFailed struct {
	Meta
	GCID            int64      `json:"gcId"`
	PromotionFailed CopyFailed `json:"promotionFailed"`
	Thread          *Thread    `json:"thread,omitempty"`
}

type EvacuationFailed struct {
	Meta
	GCID             int64      `json:"gcId"`
	EvacuationFailed CopyFailed `json:"evacuationFailed"`
}

type ConcurrentModeFailure struct {
	Meta
	GCID int64 `json:"gcId"`
}

type MetaspaceOOM struct {
	Meta
	ClassLoader         *ClassLoader `json:"classLoader,omitempty"`
	HiddenClassLoader   bool         `json:"hiddenClassLoader"`
	Size                int64        `json:"size"`
	MetadataType        *string      `json:"metadataType"`
	MetaspaceObjectType *string      `json:"metaspaceObjectType"`
	// StackTrace lists frames innermost first. An event without a stack
	// trace leaves it out of the document.
	StackTrace []string `json:"stackTrace,omitempty"`
}

type GCHeapSummary struct {
	Meta
	GCID      int64     `json:"gcId"`
	When      *string   `json:"when"`
	HeapSpace HeapSpace `json:"heapSpace"`
	HeapUsed  int64     `json:"heapUsed"`
}

type MetaspaceSummary struct {
	Meta
	GCID        int64          `json:"gcId"`
	When        *string        `json:"when"`
	GCThreshold int64          `json:"gcThreshold"`
	Metaspace   MetaspaceSizes `json:"metaspace"`
	DataSpace   MetaspaceSizes `json:"dataSpace"`
	ClassSpace  MetaspaceSizes `json:"classSpace"`
}

// GarbageCollection summarises one whole collection. SumOfPauses and
// LongestPause are in nanoseconds.
type GarbageCollection struct {
	Meta
	Duration     float64 `json:"duration"`
	GCID         int64   `json:"gcId"`
	Name         *string `json:"name"`
	Cause        *string `json:"cause"`
	SumOfPauses  int64   `json:"sumOfPauses"`
	LongestPause int64   `json:"longestPause"`
}
