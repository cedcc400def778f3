package botserver

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/pawaca/poe-go/runtime/boterrors"
	"github.com/pawaca/poe-go/runtime/telemetry"
)

// resolveAccessKey implements the key resolution preference order from
// spec.md section 4.4: explicit per-bot key, then POE_ACCESS_KEY, then the
// deprecated explicit api_key, then the deprecated POE_API_KEY (which logs
// a warning). A top-level key shared across multiple bots is rejected at
// construction: each bot must carry its own.
func resolveAccessKey(ctx context.Context, logger telemetry.Logger, explicitKey, deprecatedAPIKey string) string {
	if explicitKey != "" {
		return explicitKey
	}
	if envKey := os.Getenv("POE_ACCESS_KEY"); envKey != "" {
		return envKey
	}
	if deprecatedAPIKey != "" {
		logger.Warn(ctx, "api_key is deprecated, use access_key instead")
		return deprecatedAPIKey
	}
	if envKey := os.Getenv("POE_API_KEY"); envKey != "" {
		logger.Warn(ctx, "POE_API_KEY is deprecated, use POE_ACCESS_KEY instead")
		return envKey
	}
	return ""
}

// authenticate checks r's Authorization header against bot's resolved
// access key. A bot with no key and AllowWithoutKey accepts any request.
// Returns nil on success, or an *boterrors.HTTPException carrying the
// status and headers the dispatcher should write.
func authenticate(bot *PoeBot, r *http.Request) error {
	if bot.AccessKey == "" {
		if bot.AllowWithoutKey {
			return nil
		}
		return boterrors.NewHTTPException(http.StatusForbidden, "Not authenticated")
	}

	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return boterrors.NewHTTPException(http.StatusForbidden, "Not authenticated")
	}

	token := strings.TrimPrefix(header, prefix)
	if token != bot.AccessKey {
		exc := boterrors.NewHTTPException(http.StatusUnauthorized, "Invalid access key")
		exc.Headers = http.Header{"WWW-Authenticate": []string{"Bearer"}}
		return exc
	}
	return nil
}
