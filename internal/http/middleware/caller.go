package middleware

import (
	"crypto/subtle"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	InternalKeyHeader = "X-Internal-Key"
	CallerIdentityKey = "caller_identity"
	PrivilegedKey     = "privileged"
)

// Caller resolves who is calling and whether they presented the internal key.
// An empty internalKey disables privileged access.
func Caller(internalKey string) gin.HandlerFunc {
	secret := []byte(internalKey)

	return func(ctx *gin.Context) {
		ctx.Set(CallerIdentityKey, CallerIdentity(ctx.GetHeader("X-Forwarded-For"), ctx.Request.RemoteAddr))

		privileged := false
		if len(secret) > 0 {
			presented := []byte(ctx.GetHeader(InternalKeyHeader))
			privileged = subtle.ConstantTimeCompare(presented, secret) == 1
		}
		ctx.Set(PrivilegedKey, privileged)

		ctx.Next()
	}
}

// CallerIdentity returns the first X-Forwarded-For entry, or the host part
// of remoteAddr when the header is absent.
func CallerIdentity(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
