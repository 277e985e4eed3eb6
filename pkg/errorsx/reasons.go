package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonTranslatePrimary  ReasonCode = "translate_primary"
	ReasonTranslateFallback ReasonCode = "translate_fallback"
	ReasonTranslateParse    ReasonCode = "translate_parse"

	ReasonClassifyText  ReasonCode = "classify_text"
	ReasonClassifyVoice ReasonCode = "classify_voice"
	ReasonTranscribe    ReasonCode = "transcribe"

	ReasonLLMGenerate  ReasonCode = "llm_generate"
	ReasonLLMBlocked   ReasonCode = "llm_blocked"
	ReasonLLMRateLimit ReasonCode = "llm_rate_limit"

	ReasonNotifySend ReasonCode = "notify_send"
	ReasonAlertLog   ReasonCode = "alert_log"

	ReasonStoreRead  ReasonCode = "store_read"
	ReasonStoreWrite ReasonCode = "store_write"
	ReasonCacheRead  ReasonCode = "cache_read"
	ReasonCacheWrite ReasonCode = "cache_write"

	ReasonSynthesize ReasonCode = "synthesize"
)
