package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

// CountryHeader is set by the edge proxy with an ISO 3166 alpha-2 code.
const CountryHeader = "CF-IPCountry"

// ClientInfo captures caller metadata for access log entries.
func ClientInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ua := c.Get(fiber.HeaderUserAgent)
		info := model.ClientInfo{
			IPAddress:   c.IP(),
			UserAgent:   ua,
			CountryCode: countryCode(c.Get(CountryHeader)),
			DeviceType:  deviceType(ua),
		}
		c.SetUserContext(service.WithClientInfo(c.UserContext(), info))
		return c.Next()
	}
}

func countryCode(h string) string {
	h = strings.ToUpper(strings.TrimSpace(h))
	if len(h) != 2 {
		return ""
	}
	return h
}

func deviceType(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return "mobile"
	case strings.Contains(ua, "bot") || strings.Contains(ua, "curl") || strings.Contains(ua, "go-http-client"):
		return "bot"
	}
	return "desktop"
}
