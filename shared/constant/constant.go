package constant

const (
	Empty = ""
)

const (
	RequestHeaderContentType        = "Content-Type"
	RequestHeaderUserAgent          = "User-Agent"
	RequestHeaderForwardedFor       = "X-Forwarded-For"
	RequestHeaderRealIP             = "X-Real-IP"
	RequestHeaderAPIKey             = "X-API-Key"
	RequestHeaderStripeSignature    = "Stripe-Signature"
	RequestHeaderRateLimit          = "X-RateLimit-Limit"
	RequestHeaderRateLimitRemaining = "X-RateLimit-Remaining"
	RequestHeaderRateLimitWindow    = "X-RateLimit-Window"

	ContentTypeJSON = "application/json"

	RequestParamID = "id"
)

const (
	ResponseErrorRequestLimitExceeded = "request limit exceeded, please try again later"
	ResponseErrorPrepareShutdown      = "server is preparing to shut down"
	ResponseErrorUnhealthy            = "server is unhealthy"
)

const (
	OtelHandlerScopeName    = "handler"
	OtelServiceScopeName    = "service"
	OtelRepositoryScopeName = "repository"
	OtelQueryAttributeKey   = "db.statement"
)
