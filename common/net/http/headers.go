package http

const (
	headerCorrelationID = "X-Correlation-ID"
	headerUserAgent     = "User-Agent"
	headerRealIP        = "X-Real-Ip"
	headerForwardedFor  = "X-Forwarded-For"
)
