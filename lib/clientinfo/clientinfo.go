package clientinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"gfx.cafe/util/go/generic"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/mileusna/useragent"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
)

// HashIP returns the hex sha256 of the client address. Logs only ever see
// the address in this form.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

type agentInfo struct {
	deviceType string
	browser    *callmeta.Browser
}

// Extractor derives caller metadata from transport inputs. Parsed user
// agents are cached since clients repeat them on every call.
type Extractor struct {
	agents *simplelru.LRU[string, agentInfo]
	mu     sync.Mutex
}

func NewExtractor(cacheSize int) *Extractor {
	return &Extractor{
		agents: generic.Must(simplelru.NewLRU[string, agentInfo](cacheSize, nil)),
	}
}

func deviceTypeOf(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Desktop:
		return "desktop"
	default:
		return ""
	}
}

func (T *Extractor) parseAgent(ua string) agentInfo {
	T.mu.Lock()
	if info, ok := T.agents.Get(ua); ok {
		T.mu.Unlock()
		return info
	}
	T.mu.Unlock()

	parsed := useragent.Parse(ua)
	info := agentInfo{
		deviceType: deviceTypeOf(parsed),
	}
	if parsed.Name != "" {
		info.browser = &callmeta.Browser{
			Name:    parsed.Name,
			Version: parsed.Version,
		}
	}

	T.mu.Lock()
	T.agents.Add(ua, info)
	T.mu.Unlock()
	return info
}

// Client assembles metadata for one caller. A field is nil only when its
// input was never provided: no address means no IPHash, no user-agent header
// means no DeviceType, and Browser additionally needs a recognized family.
func (T *Extractor) Client(remoteIP, userAgent string) *callmeta.Client {
	client := new(callmeta.Client)
	if remoteIP != "" {
		client.IPHash = util.Ptr(HashIP(remoteIP))
	}
	if userAgent != "" {
		info := T.parseAgent(userAgent)
		client.DeviceType = util.Ptr(info.deviceType)
		if info.browser != nil {
			browser := *info.browser
			client.Browser = &browser
		}
	}
	return client
}
