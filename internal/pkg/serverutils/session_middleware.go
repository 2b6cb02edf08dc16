package serverutils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lithammer/shortuuid/v3"
)

const (
	SessionHeader = "X-Session-Id"
	sessionCookie = "chat_session"
)

// SessionMiddleware resolves the caller's session key. Clients may pin one
// via header; browsers fall back to a cookie minted on first contact. The
// key scopes the conversation cache, nothing more — there is no identity
// attached to it.
func SessionMiddleware(ctx *fiber.Ctx) error {
	key := ctx.Get(SessionHeader)
	if key == "" {
		key = ctx.Cookies(sessionCookie)
	}
	if key == "" {
		key = shortuuid.New()
		ctx.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    key,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Expires:  time.Now().Add(24 * time.Hour),
		})
	}

	ctx.Locals("session_key", key)
	return ctx.Next()
}

// SessionKey reads the key resolved by SessionMiddleware.
func SessionKey(ctx *fiber.Ctx) string {
	key, _ := ctx.Locals("session_key").(string)
	return key
}
