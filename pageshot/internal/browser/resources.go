package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceSet is the set of request types a tab refuses to load.
type resourceSet map[proto.NetworkResourceType]bool

// resourceAliases maps config names to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"font":        proto.NetworkResourceTypeFont,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheet":  proto.NetworkResourceTypeStylesheet,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"script":      proto.NetworkResourceTypeScript,
	"scripts":     proto.NetworkResourceTypeScript,
	"xhr":         proto.NetworkResourceTypeXHR,
	"fetch":       proto.NetworkResourceTypeFetch,
	"websocket":   proto.NetworkResourceTypeWebSocket,
	"ping":        proto.NetworkResourceTypePing,
	"manifest":    proto.NetworkResourceTypeManifest,
	"other":       proto.NetworkResourceTypeOther,
}

// parseResources builds the set from config names. Unknown names, images
// and documents are ignored: a screenshot needs both.
func parseResources(names []string) resourceSet {
	set := resourceSet{}
	for _, n := range names {
		if rt, ok := resourceAliases[strings.ToLower(strings.TrimSpace(n))]; ok {
			set[rt] = true
		}
	}
	return set
}

func (s resourceSet) blocks(rt proto.NetworkResourceType) bool {
	switch rt {
	case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeDocument:
		return false
	}
	return s[rt]
}

// blockResources installs a hijack router failing requests in set. It
// returns nil when there is nothing to block.
func blockResources(page *rod.Page, set resourceSet) (*rod.HijackRouter, error) {
	if len(set) == 0 {
		return nil, nil
	}
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if set.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, err
	}
	go router.Run()
	return router, nil
}
