package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCity       = "city"
	KeyRegion     = "region"
	KeySection    = "section"
	KeyVariant    = "variant"
	KeyArticle    = "article"
	KeyBuildID    = "build_id"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRequestID  = "request_id"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func City(slug string) slog.Attr { return slog.String(KeyCity, slug) }
func Region(slug string) slog.Attr { return slog.String(KeyRegion, slug) }
func Section(s string) slog.Attr { return slog.String(KeySection, s) }
func Variant(idx int) slog.Attr { return slog.Int(KeyVariant, idx) }
func Article(slug string) slog.Attr { return slog.String(KeyArticle, slug) }
func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func File(f string) slog.Attr { return slog.String(KeyFile, f) }
func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }
func RemoteAddr(a string) slog.Attr { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr { return slog.String(KeyUserAgent, ua) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
