package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixChapterID CachePrefix = "CHAPTER_ID_"
	CachePrefixRunLock   CachePrefix = "RUN_LOCK_"
	CachePrefixStats     CachePrefix = "CHAPTER_STATS_"
)
