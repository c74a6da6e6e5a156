package logger

import "strings"

// levelNames maps accepted spellings to the rendered level.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

type vocabulary map[string]struct{}

func newVocabulary(words ...string) vocabulary {
	v := make(vocabulary, len(words))
	for _, w := range words {
		v[w] = struct{}{}
	}
	return v
}

// lookup lowercases s and reports whether it belongs to v.
func (v vocabulary) lookup(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	_, ok := v[s]
	return s, ok && s != ""
}

var (
	statusWords  = newVocabulary("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	outcomeWords = newVocabulary("ok", "fail", "cancelled", "rate_limited")
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	return statusWords.lookup(status)
}

func normalizeOutcome(outcome string) (string, bool) {
	return outcomeWords.lookup(outcome)
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"trace_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"step",
	"operation",
	"op",
	"outcome",
	"duration_ms",
	"replies",
	"kb",
	"count",
	"sessions",
	"payload",
	"lang",
	"username",
	"date",
	"currency",
	"upstream_date",
	"quotes",
	"url",
	"http_code",
	"method",
	"path",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
}
